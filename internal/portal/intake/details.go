package intake

import (
	"bytes"
	"encoding/json"
	"time"
)

// DateLayout 明细中日期的格式
const DateLayout = "2006-01-02"

// Field 明细中的一项
type Field struct {
	Key   string
	Value interface{}
}

// Details 有序的请求明细，序列化时保持字段顺序
type Details []Field

// Add 追加一项
func (d Details) Add(key string, value interface{}) Details {
	return append(d, Field{Key: key, Value: value})
}

// Get 按键取值
func (d Details) Get(key string) (interface{}, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys 字段顺序
func (d Details) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Map 转为普通map
func (d Details) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(d))
	for _, f := range d {
		m[f.Key] = f.Value
	}
	return m
}

func (d Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func date(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}

func optInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func optStrings(s []string) interface{} {
	if s == nil {
		return nil
	}
	return s
}
