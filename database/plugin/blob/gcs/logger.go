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

package gcs

import (
	"io"
	"log/slog"
)

func newLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		// Create logger to throw away logs
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return logger.With("component", "database", "plugin", "gcs")
}

// logError records a failed object operation
func (d *BlobStoreGCS) logError(op string, key string, err error) {
	d.logger.Error(
		"gcs "+op+" failed",
		"bucket", d.bucketName,
		"key", d.prefix+key,
		"error", err,
	)
}
