package transport

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/solatis/switchboard/internal/types"
	"google.golang.org/protobuf/encoding/protowire"
)

// PayloadVersion is the only payload version this build reads and writes.
const PayloadVersion = 1

/*
 * Payload wire layout (protobuf wire format, no generated code):
 *
 *   Archive   { 1: version varint; 2: repeated Switch }
 *   Switch    { 1: name; 2: label; 3: description; 4: state varint;
 *               5: compounded varint; 6: concent varint; 7: repeated Condition }
 *   Condition { 1: argument; 2: attribute; 3: operator; 4: repeated Variable;
 *               5: negative varint }
 *   Variable  { 1: name; exactly one of 2: string, 3: sint64, 4: double, 5: bool }
 *
 * Decoding is strict. Unknown field numbers, mismatched wire types, a missing
 * or unknown version, a variable without exactly one value, invalid UTF-8,
 * an invalid switch name or state: all fail with ErrMalformedInput. Repeated
 * fields keep wire order.
 */

const (
	archiveVersion  protowire.Number = 1
	archiveSwitches protowire.Number = 2

	switchName        protowire.Number = 1
	switchLabel       protowire.Number = 2
	switchDescription protowire.Number = 3
	switchState       protowire.Number = 4
	switchCompounded  protowire.Number = 5
	switchConcent     protowire.Number = 6
	switchConditions  protowire.Number = 7

	conditionArgument  protowire.Number = 1
	conditionAttribute protowire.Number = 2
	conditionOperator  protowire.Number = 3
	conditionVariables protowire.Number = 4
	conditionNegative  protowire.Number = 5

	variableName   protowire.Number = 1
	variableString protowire.Number = 2
	variableInt    protowire.Number = 3
	variableFloat  protowire.Number = 4
	variableBool   protowire.Number = 5
)

// EncodePayload serializes switches in order.
// Fails only when a variable carries a value of an unsupported kind.
func EncodePayload(switches []*types.Switch) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, archiveVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, PayloadVersion)

	for _, sw := range switches {
		msg, err := encodeSwitch(sw)
		if err != nil {
			return nil, fmt.Errorf("switch %s: %w", sw.Name, err)
		}
		b = protowire.AppendTag(b, archiveSwitches, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func encodeSwitch(sw *types.Switch) ([]byte, error) {
	var b []byte
	b = appendString(b, switchName, sw.Name)
	b = appendString(b, switchLabel, sw.Label)
	b = appendString(b, switchDescription, sw.Description)
	b = appendVarint(b, switchState, uint64(sw.State))
	b = appendBool(b, switchCompounded, sw.Compounded)
	b = appendBool(b, switchConcent, sw.Concent)

	for i, c := range sw.Conditions {
		msg, err := encodeCondition(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		b = protowire.AppendTag(b, switchConditions, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func encodeCondition(c types.Condition) ([]byte, error) {
	var b []byte
	b = appendString(b, conditionArgument, c.Argument)
	b = appendString(b, conditionAttribute, c.Attribute)
	b = appendString(b, conditionOperator, c.Operator.Name)
	for _, v := range c.Operator.Variables {
		msg, err := encodeVariable(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, conditionVariables, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	b = appendBool(b, conditionNegative, c.Negative)
	return b, nil
}

func encodeVariable(v types.Variable) ([]byte, error) {
	b := appendString(nil, variableName, v.Name)
	switch val := v.Value.(type) {
	case string:
		b = appendString(b, variableString, val)
	case int64:
		b = appendVarint(b, variableInt, protowire.EncodeZigZag(val))
	case float64:
		b = protowire.AppendTag(b, variableFloat, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(val))
	case bool:
		b = appendBool(b, variableBool, val)
	default:
		return nil, fmt.Errorf("variable %s: %w: %T", v.Name, types.ErrUnsupportedValue, v.Value)
	}
	return b, nil
}

// Scalars are always written, even when zero, so a variable's value field is
// present whatever it holds.
func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

// DecodePayload deserializes a payload produced by EncodePayload.
func DecodePayload(data []byte) ([]*types.Switch, error) {
	r := &reader{buf: data}
	var (
		version    uint64
		hasVersion bool
		switches   []*types.Switch
	)

	for r.next() {
		switch r.num {
		case archiveVersion:
			version = r.varint()
			hasVersion = true
		case archiveSwitches:
			msg := r.bytes()
			if r.err != nil {
				break
			}
			sw, err := decodeSwitch(msg)
			if err != nil {
				return nil, fmt.Errorf("switch %d: %w", len(switches), err)
			}
			switches = append(switches, sw)
		default:
			r.unknown()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if !hasVersion {
		return nil, fmt.Errorf("%w: payload has no version", types.ErrMalformedInput)
	}
	if version != PayloadVersion {
		return nil, fmt.Errorf("%w: unsupported payload version %d", types.ErrMalformedInput, version)
	}
	return switches, nil
}

func decodeSwitch(data []byte) (*types.Switch, error) {
	r := &reader{buf: data}
	sw := &types.Switch{}

	for r.next() {
		switch r.num {
		case switchName:
			sw.Name = r.text()
		case switchLabel:
			sw.Label = r.text()
		case switchDescription:
			sw.Description = r.text()
		case switchState:
			sw.State = types.SwitchState(r.varint())
		case switchCompounded:
			sw.Compounded = r.flag()
		case switchConcent:
			sw.Concent = r.flag()
		case switchConditions:
			msg := r.bytes()
			if r.err != nil {
				break
			}
			c, err := decodeCondition(msg)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", len(sw.Conditions), err)
			}
			sw.Conditions = append(sw.Conditions, c)
		default:
			r.unknown()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if !types.ValidSwitchName(sw.Name) {
		return nil, fmt.Errorf("%w: invalid switch name %q", types.ErrMalformedInput, sw.Name)
	}
	if !sw.State.Valid() {
		return nil, fmt.Errorf("%w: invalid state %d for switch %s", types.ErrMalformedInput, int(sw.State), sw.Name)
	}
	return sw, nil
}

func decodeCondition(data []byte) (types.Condition, error) {
	r := &reader{buf: data}
	var c types.Condition

	for r.next() {
		switch r.num {
		case conditionArgument:
			c.Argument = r.text()
		case conditionAttribute:
			c.Attribute = r.text()
		case conditionOperator:
			c.Operator.Name = r.text()
		case conditionVariables:
			msg := r.bytes()
			if r.err != nil {
				break
			}
			v, err := decodeVariable(msg)
			if err != nil {
				return types.Condition{}, err
			}
			c.Operator.Variables = append(c.Operator.Variables, v)
		case conditionNegative:
			c.Negative = r.flag()
		default:
			r.unknown()
		}
	}
	return c, r.err
}

func decodeVariable(data []byte) (types.Variable, error) {
	r := &reader{buf: data}
	var (
		v      types.Variable
		values int
	)

	for r.next() {
		switch r.num {
		case variableName:
			v.Name = r.text()
		case variableString:
			v.Value = r.text()
			values++
		case variableInt:
			v.Value = protowire.DecodeZigZag(r.varint())
			values++
		case variableFloat:
			v.Value = math.Float64frombits(r.fixed64())
			values++
		case variableBool:
			v.Value = r.flag()
			values++
		default:
			r.unknown()
		}
	}
	if r.err != nil {
		return types.Variable{}, r.err
	}
	if values != 1 {
		return types.Variable{}, fmt.Errorf("%w: variable %q carries %d values", types.ErrMalformedInput, v.Name, values)
	}
	return v, nil
}

// reader walks the fields of one message. The first failure sticks and
// stops iteration; accessors return zero values after it.
type reader struct {
	buf []byte
	num protowire.Number
	typ protowire.Type
	err error
}

func (r *reader) next() bool {
	if r.err != nil || len(r.buf) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.buf)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return false
	}
	r.num, r.typ, r.buf = num, typ, r.buf[n:]
	return true
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
}

func (r *reader) expect(typ protowire.Type) bool {
	if r.typ != typ {
		r.fail(fmt.Errorf("field %d has wire type %d, want %d", r.num, r.typ, typ))
		return false
	}
	return true
}

func (r *reader) bytes() []byte {
	if !r.expect(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.buf)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return nil
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) text() string {
	b := r.bytes()
	if r.err == nil && !utf8.Valid(b) {
		r.fail(fmt.Errorf("field %d is not valid UTF-8", r.num))
		return ""
	}
	return string(b)
}

func (r *reader) varint() uint64 {
	if !r.expect(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.buf)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) flag() bool {
	return protowire.DecodeBool(r.varint())
}

func (r *reader) fixed64() uint64 {
	if !r.expect(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.buf)
	if n < 0 {
		r.fail(protowire.ParseError(n))
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) unknown() {
	r.fail(fmt.Errorf("unknown field %d", r.num))
}
