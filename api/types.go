// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"github.com/blinklabs-io/metatracer/registry"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Registry string `json:"registry"`
	Account  string `json:"account"`
	Version  string `json:"version"`
	Records  int    `json:"records"`
	Healthy  bool   `json:"healthy"`
}

// AddressResponse is returned by GET /api/address
type AddressResponse struct {
	Contract string `json:"contract"`
}

// RecordResponse is the JSON form of a record. Timestamps are unix seconds.
type RecordResponse struct {
	RecordID    string `json:"recordId"`
	ContentHash string `json:"contentHash"`
	URI         string `json:"uri"`
	Owner       string `json:"owner"`
	UpdatedBy   string `json:"updatedBy"`
	Version     uint64 `json:"version"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// ChangeResponse is the JSON form of one history entry
type ChangeResponse struct {
	Kind        string `json:"kind"`
	RecordID    string `json:"recordId"`
	ContentHash string `json:"contentHash"`
	URI         string `json:"uri"`
	Caller      string `json:"caller"`
	TxHash      string `json:"txHash"`
	Version     uint64 `json:"version"`
	Timestamp   int64  `json:"timestamp"`
}

// ListResponse wraps a list of items
type ListResponse[T any] struct {
	Items []T `json:"items"`
}

// CreateRequest is the body of POST /api/metadata. JSONText takes precedence
// over URI.
type CreateRequest struct {
	RecordIDHex string `json:"recordIdHex,omitempty"`
	JSONText    string `json:"json_text,omitempty"`
	URI         string `json:"uri,omitempty"`
}

// CreateResponse is returned by POST /api/metadata
type CreateResponse struct {
	TxHash   string `json:"txHash"`
	RecordID string `json:"recordId"`
	URI      string `json:"uri"`
	Version  uint64 `json:"version"`
}

// UpdateRequest is the body of PUT /api/metadata/{id}
type UpdateRequest struct {
	JSONText string `json:"json_text,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// UpdateResponse is returned by PUT /api/metadata/{id}
type UpdateResponse struct {
	TxHash   string `json:"txHash"`
	RecordID string `json:"recordId"`
	NewURI   string `json:"newUri"`
	Version  uint64 `json:"version"`
}

func recordResponse(rec registry.Record) RecordResponse {
	return RecordResponse{
		RecordID:    rec.ID.Hex(),
		ContentHash: rec.ContentHash.Hex(),
		URI:         rec.URI,
		Owner:       rec.Owner.Hex(),
		UpdatedBy:   rec.UpdatedBy.Hex(),
		Version:     rec.Version,
		CreatedAt:   rec.CreatedAt.Unix(),
		UpdatedAt:   rec.UpdatedAt.Unix(),
	}
}

func changeResponse(c registry.Change) ChangeResponse {
	return ChangeResponse{
		Kind:        c.Kind.String(),
		RecordID:    c.RecordID.Hex(),
		ContentHash: c.ContentHash.Hex(),
		URI:         c.URI,
		Caller:      c.Caller.Hex(),
		TxHash:      c.TxHash.Hex(),
		Version:     c.Version,
		Timestamp:   c.Timestamp.Unix(),
	}
}
