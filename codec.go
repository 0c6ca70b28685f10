package twincache

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var defaultJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec (de)serializes a Record to and from the self-describing byte
// envelope Persistence writes to disk. It is also reused by Cache as the
// deep-copy mechanism (marshal then unmarshal), giving every JSON-able
// payload structural independence from whatever the cache holds.
//
// Shipping one concrete implementation (jsonCodec) behind this interface
// keeps the on-disk format pluggable, per spec.
type Codec interface {
	EncodeRecord(*Record) ([]byte, error)
	DecodeRecord([]byte) (*Record, error)
	DeepCopy(any) (any, error)
}

// envelope is the on-disk/round-trip shape of a Record. Source is not
// part of it: Persistence always re-derives SourceDisk on load (see
// cache.go), so persisting it would be redundant and, worse, stale.
type envelope struct {
	Payload         jsoniter.RawMessage `json:"payload"`
	TypeTag         string              `json:"type_tag"`
	CreatedUnixNano int64               `json:"created_unix_nano"`
	LifetimeMillis  int64               `json:"lifetime_millis"`
	Expirable       bool                `json:"expirable"`
}

type jsonCodec struct{}

// NewJSONCodec returns the library's default Codec, backed by
// json-iterator/go in its encoding/json-compatible configuration.
func NewJSONCodec() Codec { return jsonCodec{} }

func (jsonCodec) EncodeRecord(r *Record) ([]byte, error) {
	payload, err := defaultJSON.Marshal(r.Payload)
	if err != nil {
		return nil, err
	}
	env := envelope{
		Payload:         payload,
		TypeTag:         r.TypeTag,
		CreatedUnixNano: r.CreatedAt.UnixNano(),
		LifetimeMillis:  r.Lifetime.Milliseconds(),
		Expirable:       r.Expirable,
	}
	return defaultJSON.Marshal(env)
}

func (jsonCodec) DecodeRecord(data []byte) (*Record, error) {
	var env envelope
	if err := defaultJSON.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	var payload any
	if err := defaultJSON.Unmarshal(env.Payload, &payload); err != nil {
		return nil, err
	}
	return &Record{
		Payload:   payload,
		TypeTag:   env.TypeTag,
		Source:    SourceDisk,
		CreatedAt: time.Unix(0, env.CreatedUnixNano),
		Lifetime:  time.Duration(env.LifetimeMillis) * time.Millisecond,
		Expirable: env.Expirable,
	}, nil
}

func (jsonCodec) DeepCopy(v any) (any, error) {
	data, err := defaultJSON.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := defaultJSON.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
