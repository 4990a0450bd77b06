package binding

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/favbox/breeze/internal/bytesconv"
)

const (
	queryTag   = "query"
	formTag    = "form"
	headerTag  = "header"
	cookieTag  = "cookie"
	defaultTag = "default"
)

var sourceTags = []string{queryTag, formTag, headerTag, cookieTag}

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

type fieldInfo struct {
	index        []int
	source       string
	name         string
	defaultValue string
	hasDefault   bool
}

// 结构体类型 -> []fieldInfo
var fieldCache sync.Map

func cachedFields(t reflect.Type) []fieldInfo {
	if v, ok := fieldCache.Load(t); ok {
		return v.([]fieldInfo)
	}
	fields := collectFields(t, nil, nil)
	v, _ := fieldCache.LoadOrStore(t, fields)
	return v.([]fieldInfo)
}

func collectFields(t reflect.Type, parent []int, out []fieldInfo) []fieldInfo {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		// 未导出的嵌入结构体仍可提升其导出字段
		if !sf.IsExported() && !(sf.Anonymous && sf.Type.Kind() == reflect.Struct) {
			continue
		}
		index := append(append([]int(nil), parent...), i)

		tagged := false
		for _, tag := range sourceTags {
			name, ok := sf.Tag.Lookup(tag)
			if !ok || name == "-" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			def, hasDef := sf.Tag.Lookup(defaultTag)
			out = append(out, fieldInfo{
				index:        index,
				source:       tag,
				name:         name,
				defaultValue: def,
				hasDefault:   hasDef,
			})
			tagged = true
			break
		}
		if tagged {
			continue
		}

		// 未声明来源的嵌套结构体继续展开
		ft := sf.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType && !reflect.PointerTo(ft).Implements(textUnmarshalerType) {
			out = collectFields(ft, index, out)
		}
	}
	return out
}

// 按路径取字段，沿途为空的指针会被分配。
func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, idx := range index {
		if i > 0 {
			for v.Kind() == reflect.Ptr {
				if v.IsNil() {
					v.Set(reflect.New(v.Type().Elem()))
				}
				v = v.Elem()
			}
		}
		v = v.Field(idx)
	}
	return v
}

func setValue(v reflect.Value, vals []string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setValue(v.Elem(), vals)
	}
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() != reflect.Uint8 {
		s := reflect.MakeSlice(v.Type(), len(vals), len(vals))
		for i, val := range vals {
			if err := setScalar(s.Index(i), val); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	}
	return setScalar(v, vals[0])
}

func setScalar(v reflect.Value, s string) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return setScalar(v.Elem(), s)
	}
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText(bytesconv.S2b(s))
		}
	}
	if v.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Slice:
		// []byte
		v.SetBytes([]byte(s))
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("不支持的字段类型 %s", v.Type())
	}
	return nil
}
