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

package aws

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/smithy-go/logging"
)

// S3Logger adapts slog for the S3 store and the AWS SDK
type S3Logger struct {
	logger *slog.Logger
}

var _ logging.Logger = (*S3Logger)(nil)

func NewS3Logger(logger *slog.Logger) *S3Logger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &S3Logger{
		logger: logger.With("component", "database", "plugin", "s3"),
	}
}

// Logf implements logging.Logger. SDK debug output maps to slog debug and
// warnings to slog warn.
func (l *S3Logger) Logf(
	classification logging.Classification,
	format string,
	v ...any,
) {
	msg := fmt.Sprintf(format, v...)
	switch classification {
	case logging.Warn:
		l.logger.Warn(msg, "source", "aws-sdk")
	default:
		l.logger.Debug(msg, "source", "aws-sdk")
	}
}

func (l *S3Logger) Infof(msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...))
}

func (l *S3Logger) Warnf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

func (l *S3Logger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

// Errorf logs an operation failure with the bucket key it concerned
func (l *S3Logger) Errorf(key string, msg string, err error) {
	l.logger.Error(msg, "key", key, "error", err)
}
