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

// Package sops seals small values written to remote blob stores with the
// master keys named in the environment.
package sops

import (
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	"github.com/getsops/sops/v3/age"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

const (
	EnvGCPKMSResourceID = "METATRACER_GCP_KMS_RESOURCE_ID"
	EnvAWSKMSKeyARNs    = "METATRACER_AWS_KMS_KEY_ARNS"
	EnvAWSKMSProfile    = "METATRACER_AWS_KMS_PROFILE"
	EnvAgeRecipients    = "METATRACER_AGE_RECIPIENTS"
)

var (
	ErrNoMasterKeys     = errors.New("no sops master keys configured: set " + EnvGCPKMSResourceID + ", " + EnvAWSKMSKeyARNs + " or " + EnvAgeRecipients)
	ErrAlreadyEncrypted = errors.New("already encrypted")
)

// Configured reports whether any master key is set in the environment
func Configured() bool {
	return os.Getenv(EnvGCPKMSResourceID) != "" ||
		os.Getenv(EnvAWSKMSKeyARNs) != "" ||
		os.Getenv(EnvAgeRecipients) != ""
}

// Decrypt opens a document produced by Encrypt. The master key needed to
// unwrap the data key is located by sops itself (KMS credentials, or
// SOPS_AGE_KEY / SOPS_AGE_KEY_FILE for age).
func Decrypt(data []byte) ([]byte, error) {
	ret, err := decrypt.Data(data, "binary")
	if err != nil {
		return nil, fmt.Errorf("sops decrypt: %w", err)
	}
	return ret, nil
}

// Encrypt seals data for every master key group in the environment
func Encrypt(data []byte) ([]byte, error) {
	storeConfig := &config.JSONBinaryStoreConfig{}
	input := jsonstore.NewBinaryStore(storeConfig)
	output := jsonstore.NewBinaryStore(storeConfig)

	branches, err := input.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	for _, branch := range branches {
		for _, item := range branch {
			if item.Key == "sops" {
				return nil, ErrAlreadyEncrypted
			}
		}
	}
	keyGroups, err := masterKeyGroups()
	if err != nil {
		return nil, err
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("generate data key: %v", errs)
	}
	if err := scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}); err != nil {
		return nil, fmt.Errorf("encrypt tree: %w", err)
	}
	encrypted, err := output.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("emit encrypted file: %w", err)
	}
	return encrypted, nil
}

// masterKeyGroups builds one key group per configured backend
func masterKeyGroups() ([]sopsapi.KeyGroup, error) {
	var keyGroups []sopsapi.KeyGroup
	if rid := os.Getenv(EnvGCPKMSResourceID); rid != "" {
		var group sopsapi.KeyGroup
		for _, k := range gcpkms.MasterKeysFromResourceIDString(rid) {
			group = append(group, k)
		}
		if len(group) > 0 {
			keyGroups = append(keyGroups, group)
		}
	}
	if arns := os.Getenv(EnvAWSKMSKeyARNs); arns != "" {
		var group sopsapi.KeyGroup
		profile := os.Getenv(EnvAWSKMSProfile)
		for _, k := range awskms.MasterKeysFromArnString(arns, nil, profile) {
			group = append(group, k)
		}
		if len(group) > 0 {
			keyGroups = append(keyGroups, group)
		}
	}
	if recipients := os.Getenv(EnvAgeRecipients); recipients != "" {
		keys, err := age.MasterKeysFromRecipients(recipients)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvAgeRecipients, err)
		}
		var group sopsapi.KeyGroup
		for _, k := range keys {
			group = append(group, skeys.MasterKey(k))
		}
		if len(group) > 0 {
			keyGroups = append(keyGroups, group)
		}
	}
	if len(keyGroups) == 0 {
		return nil, ErrNoMasterKeys
	}
	return keyGroups, nil
}
