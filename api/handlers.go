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
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blinklabs-io/metatracer/content"
	"github.com/blinklabs-io/metatracer/registry"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeRegistryError maps registry errors to status codes. Unexpected
// errors are logged and reported without detail.
func (s *Server) writeRegistryError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	var status int
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, registry.ErrInvalidCaller):
		status = http.StatusBadRequest
	default:
		s.logger.Error(
			"registry write failed",
			"error", err,
			"correlation_id", CorrelationID(r.Context()),
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to write record",
		)
		return
	}
	writeError(w, status, http.StatusText(status), err.Error())
}

// caller returns the identity named by the X-Caller-Address header, or the
// server account when the header is absent
func (s *Server) caller(r *http.Request) (registry.Identity, error) {
	hdr := strings.TrimSpace(r.Header.Get(callerAddressHeader))
	if hdr == "" {
		return s.config.Account, nil
	}
	return registry.ParseIdentity(hdr)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Healthy:  true,
		Registry: s.config.RegistryAddress.Hex(),
		Account:  s.config.Account.Hex(),
		Records:  s.registry.Len(),
		Version:  s.config.Version,
	})
}

func (s *Server) handleAddress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, AddressResponse{
		Contract: s.config.RegistryAddress.Hex(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	records := s.registry.List()
	items := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, recordResponse(rec))
	}
	writeJSON(w, http.StatusOK, ListResponse[RecordResponse]{Items: items})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseRecordID(chi.URLParam(r, "recordId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rec, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "record not found")
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(rec))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseRecordID(chi.URLParam(r, "recordId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	changes, err := s.registry.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not Found", "record not found")
			return
		}
		s.logger.Error(
			"failed to load record history",
			"error", err,
			"record_id", id.Hex(),
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"failed to load record history",
		)
		return
	}
	items := make([]ChangeResponse, 0, len(changes))
	for _, c := range changes {
		items = append(items, changeResponse(c))
	}
	writeJSON(w, http.StatusOK, ListResponse[ChangeResponse]{Items: items})
}

// handleCreate handles POST /api/metadata. Without recordIdHex the ID is
// keccak256 of json_text, or of a random UUID when only uri is given.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.JSONText == "" && req.URI == "" {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"one of json_text or uri is required",
		)
		return
	}
	var id registry.RecordID
	switch {
	case req.RecordIDHex != "":
		id, err = registry.ParseRecordID(req.RecordIDHex)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	case req.JSONText != "":
		id = crypto.Keccak256Hash([]byte(req.JSONText))
	default:
		id = crypto.Keccak256Hash([]byte(uuid.NewString()))
	}
	var rec registry.Record
	if req.JSONText != "" {
		rec, err = s.registry.CreateWithContent(
			r.Context(),
			id,
			caller,
			s.objects.ContentFunc(r.Context(), []byte(req.JSONText)),
		)
	} else {
		// External content has no known hash
		rec, err = s.registry.Create(r.Context(), id, common.Hash{}, req.URI, caller)
	}
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	s.logger.Info(
		"record created",
		"record_id", rec.ID.Hex(),
		"owner", rec.Owner.Hex(),
		"correlation_id", CorrelationID(r.Context()),
	)
	writeJSON(w, http.StatusCreated, CreateResponse{
		TxHash:   rec.LastChange().TxHash.Hex(),
		RecordID: rec.ID.Hex(),
		URI:      rec.URI,
		Version:  rec.Version,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseRecordID(chi.URLParam(r, "recordId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	caller, err := s.caller(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req UpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	var rec registry.Record
	switch {
	case req.JSONText != "":
		rec, err = s.registry.UpdateWithContent(
			r.Context(),
			id,
			caller,
			s.objects.ContentFunc(r.Context(), []byte(req.JSONText)),
		)
	case req.URI != "":
		rec, err = s.registry.Update(r.Context(), id, common.Hash{}, req.URI, caller)
	default:
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"one of json_text or uri is required",
		)
		return
	}
	if err != nil {
		s.writeRegistryError(w, r, err)
		return
	}
	s.logger.Info(
		"record updated",
		"record_id", rec.ID.Hex(),
		"version", rec.Version,
		"correlation_id", CorrelationID(r.Context()),
	)
	writeJSON(w, http.StatusOK, UpdateResponse{
		TxHash:   rec.LastChange().TxHash.Hex(),
		RecordID: rec.ID.Hex(),
		NewURI:   rec.URI,
		Version:  rec.Version,
	})
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	data, err := s.objects.Get(
		r.Context(),
		chi.URLParam(r, "recordId"),
		chi.URLParam(r, "name"),
	)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrObjectNotFound):
			writeError(w, http.StatusNotFound, "Not Found", "object not found")
		case errors.Is(err, content.ErrInvalidObject):
			writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		default:
			s.logger.Error(
				"failed to read object",
				"error", err,
				"correlation_id", CorrelationID(r.Context()),
			)
			writeError(
				w,
				http.StatusInternalServerError,
				"Internal Server Error",
				"failed to read object",
			)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(data)
}
