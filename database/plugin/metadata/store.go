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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/blinklabs-io/metatracer/database/models"
	"github.com/blinklabs-io/metatracer/database/plugin"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, *gorm.DB) error
	Transaction() *gorm.DB

	// Records
	GetRecords(*gorm.DB) ([]models.Record, error)
	GetRecord(
		[]byte, // recordId
		*gorm.DB,
	) (*models.Record, error)
	CreateRecord(
		*models.Record,
		*models.RecordChange,
		*gorm.DB,
	) error
	UpdateRecord(
		*models.Record,
		*models.RecordChange,
		*gorm.DB,
	) error
	GetRecordChanges(
		[]byte, // recordId
		*gorm.DB,
	) ([]models.RecordChange, error)
}

// New returns the started metadata plugin selected by name
func New(
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
