// Package repository stores session records and clock bases keyed by session id.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/tempo/go/internal/models"
)

// ErrNotFound is returned when no record exists for a session id.
var ErrNotFound = errors.New("not found")

func encodeClockBase(base models.ClockBase) ([]byte, error) {
	data, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to encode clock base: %w", err)
	}
	return data, nil
}

func decodeClockBase(data []byte) (*models.ClockBase, error) {
	var base models.ClockBase
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to decode clock base: %w", err)
	}
	return &base, nil
}
