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

package models

// Record is the current state of a registry record. Timestamps are unix
// nanoseconds and are always set by the registry, never by gorm.
type Record struct {
	RecordID    []byte `gorm:"uniqueIndex;not null;size:32"`
	ContentHash []byte `gorm:"not null;size:32"`
	Owner       []byte `gorm:"index;not null;size:20"`
	UpdatedBy   []byte `gorm:"not null;size:20"`
	URI         string `gorm:"type:text"`
	ID          uint   `gorm:"primarykey"`
	Version     uint64 `gorm:"not null"`
	CreatedAt   int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt   int64  `gorm:"index;not null;autoUpdateTime:false"`
}

func (Record) TableName() string {
	return "record"
}

// RecordChange is one committed write to a record
type RecordChange struct {
	RecordID    []byte `gorm:"uniqueIndex:idx_record_change_version;not null;size:32"`
	ContentHash []byte `gorm:"not null;size:32"`
	Caller      []byte `gorm:"not null;size:20"`
	TxHash      []byte `gorm:"index;not null;size:32"`
	URI         string `gorm:"type:text"`
	ID          uint   `gorm:"primarykey"`
	Version     uint64 `gorm:"uniqueIndex:idx_record_change_version;not null"`
	Timestamp   int64  `gorm:"not null"`
	Kind        uint8  `gorm:"not null"`
}

func (RecordChange) TableName() string {
	return "record_change"
}
