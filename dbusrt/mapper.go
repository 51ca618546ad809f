package dbusrt

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/danderson/dbus/fragments"
)

// marshaler and unmarshaler mirror the method set github.com/danderson/dbus's
// own Variant and Signature types implement directly (MarshalDBus/
// UnmarshalDBus taking a context alongside the fragments type). The real
// package keeps its general-purpose Encoder/Decoder Mapper private, so any
// caller outside that package supplying its own Encoder/Decoder - which is
// exactly what every generated Emit/Call/property accessor here does - has
// to bring its own. ValueMapper and ValueDecoderMapper are that mapper,
// covering every Go type the generators in this module produce except the
// unix-FD types (*os.File, int), which map to an error.
type marshaler interface {
	MarshalDBus(ctx context.Context, e *fragments.Encoder) error
}

type unmarshaler interface {
	UnmarshalDBus(ctx context.Context, d *fragments.Decoder) error
}

var (
	marshalerType   = reflect.TypeOf((*marshaler)(nil)).Elem()
	unmarshalerType = reflect.TypeOf((*unmarshaler)(nil)).Elem()
)

// ValueMapper is the Encoder.Mapper every Encoder this module constructs
// must carry: it lets Encoder.Value marshal the boxed payload of a
// dbus.Variant (and any variant nested inside a struct, array, or map)
// whose dynamic type is any of the Go types dbustype.DBusType.BaseType
// produces - the scalar D-Bus basic types, slices, maps, structs, and
// dbus's own Signature/Variant types.
func ValueMapper(t reflect.Type) fragments.EncoderFunc {
	if enc, ok := marshalEncoderFor(t); ok {
		return enc
	}
	switch t.Kind() {
	case reflect.Bool:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			if val.Bool() {
				enc.Uint32(1)
			} else {
				enc.Uint32(0)
			}
			return nil
		}
	case reflect.Uint8:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint8(uint8(val.Uint()))
			return nil
		}
	case reflect.Int16:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint16(uint16(val.Int()))
			return nil
		}
	case reflect.Uint16:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint16(uint16(val.Uint()))
			return nil
		}
	case reflect.Int32:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint32(uint32(val.Int()))
			return nil
		}
	case reflect.Uint32:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint32(uint32(val.Uint()))
			return nil
		}
	case reflect.Int64:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint64(uint64(val.Int()))
			return nil
		}
	case reflect.Uint64:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint64(val.Uint())
			return nil
		}
	case reflect.Float64:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.Uint64(math.Float64bits(val.Float()))
			return nil
		}
	case reflect.String:
		return func(_ context.Context, enc *fragments.Encoder, val reflect.Value) error {
			enc.String(val.String())
			return nil
		}
	case reflect.Slice, reflect.Array:
		return sliceEncoder(t.Elem())
	case reflect.Map:
		return mapEncoder(t)
	case reflect.Struct:
		return structEncoder(t)
	default:
		return func(_ context.Context, _ *fragments.Encoder, _ reflect.Value) error {
			return fmt.Errorf("dbusrt: no Encoder mapping for %s", t)
		}
	}
}

func marshalEncoderFor(t reflect.Type) (fragments.EncoderFunc, bool) {
	if t.Implements(marshalerType) {
		return func(ctx context.Context, enc *fragments.Encoder, val reflect.Value) error {
			return val.Interface().(marshaler).MarshalDBus(ctx, enc)
		}, true
	}
	if reflect.PointerTo(t).Implements(marshalerType) {
		return func(ctx context.Context, enc *fragments.Encoder, val reflect.Value) error {
			addr := reflect.New(t)
			addr.Elem().Set(val)
			return addr.Interface().(marshaler).MarshalDBus(ctx, enc)
		}, true
	}
	return nil, false
}

func sliceEncoder(elem reflect.Type) fragments.EncoderFunc {
	elemEnc := ValueMapper(elem)
	containsStructs := elem.Kind() == reflect.Struct
	return func(ctx context.Context, enc *fragments.Encoder, val reflect.Value) error {
		return enc.Array(containsStructs, func() error {
			for i := 0; i < val.Len(); i++ {
				if err := elemEnc(ctx, enc, val.Index(i)); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

func mapEncoder(t reflect.Type) fragments.EncoderFunc {
	keyEnc := ValueMapper(t.Key())
	valEnc := ValueMapper(t.Elem())
	return func(ctx context.Context, enc *fragments.Encoder, val reflect.Value) error {
		return enc.Array(true, func() error {
			iter := val.MapRange()
			for iter.Next() {
				if err := enc.Struct(func() error {
					if err := keyEnc(ctx, enc, iter.Key()); err != nil {
						return err
					}
					return valEnc(ctx, enc, iter.Value())
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

func structEncoder(t reflect.Type) fragments.EncoderFunc {
	fieldEncs := make([]fragments.EncoderFunc, t.NumField())
	for i := range fieldEncs {
		fieldEncs[i] = ValueMapper(t.Field(i).Type)
	}
	return func(ctx context.Context, enc *fragments.Encoder, val reflect.Value) error {
		return enc.Struct(func() error {
			for i, fieldEnc := range fieldEncs {
				if err := fieldEnc(ctx, enc, val.Field(i)); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// ValueDecoderMapper is the Decoder.Mapper counterpart to ValueMapper,
// needed wherever a generated proxy reads a property value back out of a
// dbus.Variant.
func ValueDecoderMapper(t reflect.Type) fragments.DecoderFunc {
	if dec, ok := unmarshalDecoderFor(t); ok {
		return dec
	}
	switch t.Kind() {
	case reflect.Bool:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint32()
			if err != nil {
				return err
			}
			val.SetBool(u != 0)
			return nil
		}
	case reflect.Uint8:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint8()
			if err != nil {
				return err
			}
			val.SetUint(uint64(u))
			return nil
		}
	case reflect.Int16:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint16()
			if err != nil {
				return err
			}
			val.SetInt(int64(int16(u)))
			return nil
		}
	case reflect.Uint16:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint16()
			if err != nil {
				return err
			}
			val.SetUint(uint64(u))
			return nil
		}
	case reflect.Int32:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint32()
			if err != nil {
				return err
			}
			val.SetInt(int64(int32(u)))
			return nil
		}
	case reflect.Uint32:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint32()
			if err != nil {
				return err
			}
			val.SetUint(uint64(u))
			return nil
		}
	case reflect.Int64:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint64()
			if err != nil {
				return err
			}
			val.SetInt(int64(u))
			return nil
		}
	case reflect.Uint64:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint64()
			if err != nil {
				return err
			}
			val.SetUint(u)
			return nil
		}
	case reflect.Float64:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			u, err := dec.Uint64()
			if err != nil {
				return err
			}
			val.SetFloat(math.Float64frombits(u))
			return nil
		}
	case reflect.String:
		return func(_ context.Context, dec *fragments.Decoder, val reflect.Value) error {
			s, err := dec.String()
			if err != nil {
				return err
			}
			val.SetString(s)
			return nil
		}
	case reflect.Slice:
		return sliceDecoder(t.Elem())
	case reflect.Map:
		return mapDecoder(t)
	case reflect.Struct:
		return structDecoder(t)
	default:
		return func(_ context.Context, _ *fragments.Decoder, _ reflect.Value) error {
			return fmt.Errorf("dbusrt: no Decoder mapping for %s", t)
		}
	}
}

func unmarshalDecoderFor(t reflect.Type) (fragments.DecoderFunc, bool) {
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return func(ctx context.Context, dec *fragments.Decoder, val reflect.Value) error {
			return val.Addr().Interface().(unmarshaler).UnmarshalDBus(ctx, dec)
		}, true
	}
	return nil, false
}

func sliceDecoder(elem reflect.Type) fragments.DecoderFunc {
	elemDec := ValueDecoderMapper(elem)
	containsStructs := elem.Kind() == reflect.Struct
	return func(ctx context.Context, dec *fragments.Decoder, val reflect.Value) error {
		slice := reflect.MakeSlice(reflect.SliceOf(elem), 0, 0)
		_, err := dec.Array(containsStructs, func(int) error {
			e := reflect.New(elem).Elem()
			if err := elemDec(ctx, dec, e); err != nil {
				return err
			}
			slice = reflect.Append(slice, e)
			return nil
		})
		if err != nil {
			return err
		}
		val.Set(slice)
		return nil
	}
}

func mapDecoder(t reflect.Type) fragments.DecoderFunc {
	keyDec := ValueDecoderMapper(t.Key())
	valDec := ValueDecoderMapper(t.Elem())
	return func(ctx context.Context, dec *fragments.Decoder, val reflect.Value) error {
		m := reflect.MakeMap(t)
		_, err := dec.Array(true, func(int) error {
			return dec.Struct(func() error {
				k := reflect.New(t.Key()).Elem()
				if err := keyDec(ctx, dec, k); err != nil {
					return err
				}
				v := reflect.New(t.Elem()).Elem()
				if err := valDec(ctx, dec, v); err != nil {
					return err
				}
				m.SetMapIndex(k, v)
				return nil
			})
		})
		if err != nil {
			return err
		}
		val.Set(m)
		return nil
	}
}

func structDecoder(t reflect.Type) fragments.DecoderFunc {
	fieldDecs := make([]fragments.DecoderFunc, t.NumField())
	for i := range fieldDecs {
		fieldDecs[i] = ValueDecoderMapper(t.Field(i).Type)
	}
	return func(ctx context.Context, dec *fragments.Decoder, val reflect.Value) error {
		return dec.Struct(func() error {
			for i, fieldDec := range fieldDecs {
				if err := fieldDec(ctx, dec, val.Field(i)); err != nil {
					return err
				}
			}
			return nil
		})
	}
}
