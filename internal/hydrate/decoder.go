// Package hydrate turns loosely typed transport payloads into typed structs.
//
// A payload goes through four stages: it is cloned so the caller keeps its
// map, pre-hooks reshape the clone, the clone is decoded (through JSON unless
// a custom decoder is set) and post-hooks adjust the result. A failure in any
// stage is reported as an *Error naming that stage.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Context identifies where a payload came from.
type Context struct {
	Source string
	Caller string
}

// Stage names one step of the decoding pipeline.
type Stage string

const (
	StageInput    Stage = "input"
	StageClone    Stage = "clone"
	StagePreHook  Stage = "pre-hook"
	StageDecode   Stage = "decode"
	StagePostHook Stage = "post-hook"
)

// ErrNilPayload is reported at StageInput for a nil payload.
var ErrNilPayload = errors.New("payload is nil")

// Error reports the stage a payload failed in. Index is the payload's
// position for DecodeEach and -1 for Decode.
type Error struct {
	Stage  Stage
	Source string
	Index  int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("hydrate: %s from %q item %d: %v", e.Stage, e.Source, e.Index, e.Err)
	}
	return fmt.Sprintf("hydrate: %s from %q: %v", e.Stage, e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PreHook reshapes the cloned payload before decoding. Returning a nil map
// keeps the current one.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts transport payloads into T. A Decoder is safe for
// concurrent use once built.
type Decoder[T any] struct {
	preHooks        []PreHook
	postHooks       []PostHook[T]
	useNumber       bool
	disallowUnknown bool
	custom          CustomDecoder[T]
}

// WithPreHook appends hook to the pre-decoding stage.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithPostHook appends hook to the post-decoding stage.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber decodes numbers into json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.useNumber = true
	}
}

// WithDisallowUnknownFields rejects payload keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.disallowUnknown = true
	}
}

// WithCustomDecoder replaces JSON decoding with decoder.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs payload through every stage.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	return d.decode(ctx, -1, payload)
}

// DecodeEach decodes payloads in order and stops at the first failure,
// whose *Error carries the failing index.
func (d *Decoder[T]) DecodeEach(ctx Context, payloads []map[string]any) ([]T, error) {
	out := make([]T, 0, len(payloads))
	for i, payload := range payloads {
		value, err := d.decode(ctx, i, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func (d *Decoder[T]) decode(ctx Context, index int, payload map[string]any) (T, error) {
	var zero T
	fail := func(stage Stage, err error) (T, error) {
		return zero, &Error{Stage: stage, Source: ctx.Source, Index: index, Err: err}
	}

	if payload == nil {
		return fail(StageInput, ErrNilPayload)
	}
	current, err := clonePayload(payload)
	if err != nil {
		return fail(StageClone, err)
	}

	for _, hook := range d.preHooks {
		next, err := hook(ctx, current)
		if err != nil {
			return fail(StagePreHook, err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := d.decodeValue(ctx, current)
	if err != nil {
		return fail(StageDecode, err)
	}

	for _, hook := range d.postHooks {
		if err := hook(ctx, &result); err != nil {
			return fail(StagePostHook, err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decodeValue(ctx Context, payload map[string]any) (T, error) {
	if d.custom != nil {
		return d.custom(ctx, payload)
	}
	var result T
	buffer, err := json.Marshal(payload)
	if err != nil {
		return result, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.useNumber {
		decoder.UseNumber()
	}
	if d.disallowUnknown {
		decoder.DisallowUnknownFields()
	}
	err = decoder.Decode(&result)
	return result, err
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
