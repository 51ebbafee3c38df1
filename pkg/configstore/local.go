// Copyright 2025 UMH Systems GmbH
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

package configstore

import (
	"context"
	_ "embed"

	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/safejson"
)

//go:embed schema.json
var schema []byte

// Schema returns the JSON schema of the config document.
func Schema() safejson.RawMessage {
	return append(safejson.RawMessage(nil), schema...)
}

// Local serves an editor straight from the store, for editing a config file
// on the machine the service runs on.
type Local struct {
	Store *Store
}

func (l Local) FetchConfig(ctx context.Context) (config.LocalConfig, error) {
	return l.Store.Load(ctx)
}

func (l Local) FetchCameras(ctx context.Context) ([]config.DetectedCamera, error) {
	return l.Store.Cameras(ctx)
}

func (l Local) FetchSchema(context.Context) (safejson.RawMessage, error) {
	return Schema(), nil
}

func (l Local) SaveConfig(ctx context.Context, cfg config.LocalConfig) error {
	return l.Store.Save(ctx, cfg)
}
