package marsh

import (
	"time"
)

// isoLayout is the wire format for timestamps: always UTC, always with
// microsecond precision, always "Z" suffixed. Grounds the datetime codec in
// vow/marsh/impl/any.py's AnyIntoDatetime/AnyFromDatetime.
const isoLayout = "2006-01-02T15:04:05.000000Z"

// TimestampEncodeDescriptor renders a time.Time as an ISO-8601 string in UTC
// with microsecond precision.
type TimestampEncodeDescriptor struct{ leaf }

// TimestampEncode returns a descriptor that serializes time.Time to string.
func TimestampEncode() *TimestampEncodeDescriptor { return &TimestampEncodeDescriptor{} }

func (d *TimestampEncodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		t, ok := v.(time.Time)
		if !ok {
			return nil, NewError(ReasonNotInstance, v, nil)
		}
		return t.UTC().Format(isoLayout), nil
	}), nil
}

// TimestampDecodeDescriptor parses an ISO-8601 string into a UTC time.Time.
type TimestampDecodeDescriptor struct{ leaf }

// TimestampDecode returns a descriptor that parses an ISO-8601 string.
func TimestampDecode() *TimestampDecodeDescriptor { return &TimestampDecodeDescriptor{} }

func (d *TimestampDecodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, NewError(ReasonNotInstance, v, nil)
		}
		t, err := time.Parse(isoLayout, s)
		if err != nil {
			if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
				return t2.UTC(), nil
			}
			return nil, NewError(ReasonUnmappable, v, err)
		}
		return t.UTC(), nil
	}), nil
}

// DurationEncodeDescriptor renders a time.Duration as its length in seconds,
// expressed as a float64, mirroring vow's duration-as-seconds wire form.
type DurationEncodeDescriptor struct{ leaf }

// DurationEncode returns a descriptor that serializes time.Duration to seconds.
func DurationEncode() *DurationEncodeDescriptor { return &DurationEncodeDescriptor{} }

func (d *DurationEncodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		dur, ok := v.(time.Duration)
		if !ok {
			return nil, NewError(ReasonNotInstance, v, nil)
		}
		return dur.Seconds(), nil
	}), nil
}

// DurationDecodeDescriptor parses a seconds-valued number into time.Duration.
type DurationDecodeDescriptor struct{ leaf }

// DurationDecode returns a descriptor that parses seconds into a time.Duration.
func DurationDecode() *DurationDecodeDescriptor { return &DurationDecodeDescriptor{} }

func (d *DurationDecodeDescriptor) Build(map[string]Mapper) (Mapper, error) {
	return MapperFunc(func(v any) (any, error) {
		switch x := v.(type) {
		case float64:
			return time.Duration(x * float64(time.Second)), nil
		case int:
			return time.Duration(x) * time.Second, nil
		case int64:
			return time.Duration(x) * time.Second, nil
		default:
			return nil, NewError(ReasonNotInstance, v, nil)
		}
	}), nil
}
