// Copyright 2025 Tom Barlow
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

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name entries are stored under.
const DefaultService = "lingohub-upload"

// KeychainBackend stores secrets in the system keychain (macOS Keychain,
// Secret Service on Linux, Windows Credential Manager).
type KeychainBackend struct {
	service   string
	available bool
}

// NewKeychainBackend creates a keychain backend for service, or
// DefaultService when service is empty. Availability is probed once by
// reading a key that never exists; CI runners usually have no keyring.
func NewKeychainBackend(service string) *KeychainBackend {
	if service == "" {
		service = DefaultService
	}

	_, err := keyring.Get(service, "__availability_probe__")
	return &KeychainBackend{
		service:   service,
		available: err == nil || errors.Is(err, keyring.ErrNotFound),
	}
}

// Name returns the backend identifier.
func (k *KeychainBackend) Name() string {
	return "keychain"
}

// Get retrieves a secret from the system keychain.
func (k *KeychainBackend) Get(_ context.Context, key string) (string, error) {
	if !k.available {
		return "", errUnavailable
	}
	value, err := keyring.Get(k.service, key)
	if err != nil {
		return "", classify(err, key)
	}
	return value, nil
}

// Set stores a secret in the system keychain.
func (k *KeychainBackend) Set(_ context.Context, key string, value string) error {
	if !k.available {
		return errUnavailable
	}
	return classify(keyring.Set(k.service, key, value), key)
}

// Delete removes a secret from the system keychain.
func (k *KeychainBackend) Delete(_ context.Context, key string) error {
	if !k.available {
		return errUnavailable
	}
	return classify(keyring.Delete(k.service, key), key)
}

// Available returns true if the keychain service is accessible.
func (k *KeychainBackend) Available() bool {
	return k.available
}

var errUnavailable = fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)

// classify maps keyring errors onto ErrSecretNotFound and
// ErrBackendUnavailable.
func classify(err error, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	case isKeychainUnavailableError(err):
		return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
	default:
		return fmt.Errorf("keychain error: %w", err)
	}
}

// unavailableIndicators are error fragments platforms use for a locked or
// missing keychain.
var unavailableIndicators = []string{
	"locked",
	"cannot access",
	"permission denied",
	"failed to unlock",
	"user interaction required",
	"secret service",
	"dbus",
	"user canceled",
}

func isKeychainUnavailableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, indicator := range unavailableIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
