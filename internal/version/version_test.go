// ABOUTME: Tests for version constants
// ABOUTME: Ensures build identity is properly defined
package version

import "testing"

func TestIdentityDefined(t *testing.T) {
	for name, value := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if value == "" {
			t.Errorf("%s should not be empty", name)
		}
		if len(value) > 100 {
			t.Errorf("%s is unreasonably long", name)
		}
	}
}
