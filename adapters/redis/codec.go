package redis

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrPointerType = errors.New("pointer type is not allowed")

// 消息在 stream 中的欄位名稱
const messageField = "payload"

// EncodeMessage 將事件以 msgpack 序列化後放入 stream 欄位
func EncodeMessage[T any](data T) (map[string]any, error) {
	if reflect.TypeOf(data).Kind() == reflect.Ptr {
		return nil, ErrPointerType
	}
	b, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}
	return map[string]any{messageField: string(b)}, nil
}

// DecodeMessage 為 EncodeMessage 的反向操作，供下游消費者使用
func DecodeMessage[T any](values map[string]any) (T, error) {
	var result T
	if reflect.TypeOf(result).Kind() == reflect.Ptr {
		return result, ErrPointerType
	}
	raw, ok := values[messageField].(string)
	if !ok {
		return result, fmt.Errorf("field %q not found or invalid type", messageField)
	}
	if err := msgpack.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("msgpack unmarshal error: %w", err)
	}
	return result, nil
}
