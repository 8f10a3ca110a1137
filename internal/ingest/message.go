// Package ingest moves accepted metric records through the queue: the HTTP
// path encodes them, the consumer decodes them and writes them to the store.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soltixdb/unitmetrics/internal/compression"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// Message is the wire form of one accepted record
type Message struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"user_id"`
	Quantity  string  `json:"type"`
	Unit      string  `json:"unit"`
	Value     float64 `json:"value"`
	Time      string  `json:"time"`       // RFC3339Nano
	CreatedAt string  `json:"created_at"` // RFC3339Nano
}

// NewMessage converts a record to its wire form
func NewMessage(r *store.Record) Message {
	return Message{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Quantity:  r.Quantity.String(),
		Unit:      r.Unit.String(),
		Value:     r.Value,
		Time:      r.Timestamp.UTC().Format(time.RFC3339Nano),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Record parses the message back into a record. The quantity is resolved
// from the unit again and must agree with the type the publisher stamped.
func (m Message) Record() (*store.Record, error) {
	unit, err := units.ParseUnit(m.Unit)
	if err != nil {
		return nil, err
	}
	quantity := unit.Quantity()
	if m.Quantity != "" {
		declared, err := units.ParseQuantity(m.Quantity)
		if err != nil {
			return nil, err
		}
		if err := units.CheckUnitQuantity(unit, declared); err != nil {
			return nil, err
		}
	}

	ts, err := time.Parse(time.RFC3339Nano, m.Time)
	if err != nil {
		return nil, fmt.Errorf("message %s: invalid time: %w", m.ID, err)
	}
	created := time.Now().UTC()
	if m.CreatedAt != "" {
		if created, err = time.Parse(time.RFC3339Nano, m.CreatedAt); err != nil {
			return nil, fmt.Errorf("message %s: invalid created_at: %w", m.ID, err)
		}
	}

	r := &store.Record{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Quantity:  quantity,
		Unit:      unit,
		Value:     m.Value,
		Timestamp: ts.UTC(),
		CreatedAt: created.UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Codec turns records into framed, optionally compressed queue payloads
type Codec struct {
	compressor compression.Compressor
}

// NewCodec creates a codec writing with the named algorithm (none or snappy).
// Decoding accepts any algorithm regardless of this setting.
func NewCodec(algorithm string) (*Codec, error) {
	algo, err := compression.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	c, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	return &Codec{compressor: c}, nil
}

// Encode serializes a record
func (c *Codec) Encode(r *store.Record) ([]byte, error) {
	data, err := json.Marshal(NewMessage(r))
	if err != nil {
		return nil, fmt.Errorf("marshal message %s: %w", r.ID, err)
	}
	return compression.Frame(c.compressor, data)
}

// Decode parses a payload produced by Encode
func (c *Codec) Decode(payload []byte) (*store.Record, error) {
	data, _, err := compression.Unframe(payload)
	if err != nil {
		return nil, err
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return m.Record()
}
