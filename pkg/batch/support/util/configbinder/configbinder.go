// Package configbinder decodes loosely typed configuration maps into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Bind decodes source (typically a map[string]interface{} taken from the YAML
// storage or database section) into target, which must be a pointer.
// Fields are matched by their yaml tag and strings are converted to numbers or
// bools where needed, so values coming from ${VAR} expansion still bind.
func Bind(source interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(source); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to %s: %w", targetType.Name(), err)
	}
	return nil
}
