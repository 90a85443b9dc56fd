package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 将 src 中的非零值深度合并到 dst 并返回 dst
// - dst、src 均为 nil 时返回错误
// - 任一为 nil 时返回另一个
// - 切片整体覆盖，map 按 key 合并
func MergeConfig[T any](dst, src *T) (*T, error) {
	if dst == nil && src == nil {
		return nil, fmt.Errorf("%w: both dst and src are nil", ErrNilConfig)
	}
	if dst == nil {
		return src, nil
	}
	if src == nil {
		return dst, nil
	}

	if err := mergeValues(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

func mergeValues(dst, src reflect.Value) error {
	if !src.IsValid() || isZeroValue(src) {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			df := dst.Field(i)
			if !df.CanSet() {
				continue
			}
			if err := mergeValues(df, src.Field(i)); err != nil {
				return fmt.Errorf("failed to merge field %s: %w", t.Field(i).Name, err)
			}
		}
	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMap(dst.Type()))
		}
		iter := src.MapRange()
		for iter.Next() {
			existing := dst.MapIndex(iter.Key())
			if !existing.IsValid() {
				dst.SetMapIndex(iter.Key(), iter.Value())
				continue
			}
			merged := reflect.New(dst.Type().Elem()).Elem()
			merged.Set(existing)
			if err := mergeValues(merged, iter.Value()); err != nil {
				return err
			}
			dst.SetMapIndex(iter.Key(), merged)
		}
	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return mergeValues(dst.Elem(), src.Elem())
	default:
		if dst.CanSet() {
			dst.Set(src)
		}
	}
	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
