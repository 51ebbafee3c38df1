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

package stages

import (
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/binding"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/config"
	"github.com/united-manufacturing-hub/oak-config-builder/pkg/form"
)

// RenderTransform edits a WPILib Transform3d: translation in meters and the
// rotation quaternion.
func RenderTransform(b *form.Builder, value config.Transform3d, onChange func(config.Transform3d)) form.Node {
	tb := b.Scope("translation")
	t := binding.UseFacade(tb, value.Translation,
		binding.ReplaceKey[config.Transform3d, config.Translation3d]("translation", value, onChange))

	onRotation := binding.ReplaceKey[config.Transform3d, config.Rotation3d]("rotation", value, onChange)
	qb := b.Scope("rotation.quaternion")
	q := binding.UseFacade(qb, value.Rotation.Quaternion,
		binding.ReplaceKey[config.Rotation3d, config.Quaternion]("quaternion", value.Rotation, onRotation))

	return form.Group("Pose",
		form.Group("Translation (m)",
			t.Number(tb, "x", "X", form.Required()),
			t.Number(tb, "y", "Y", form.Required()),
			t.Number(tb, "z", "Z", form.Required()),
		),
		form.Group("Rotation (quaternion)",
			q.Number(qb, "W", "W", form.Required()),
			q.Number(qb, "X", "X", form.Required()),
			q.Number(qb, "Y", "Y", form.Required()),
			q.Number(qb, "Z", "Z", form.Required()),
		),
	)
}
