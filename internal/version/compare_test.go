package version

import (
	"testing"

	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSchemaCompatibility(t *testing.T) {
	tests := []struct {
		name           string
		currentVersion string
		storedVersion  string
		expectCode     errors.ErrorCode
		errorContains  string
	}{
		{
			name:           "exact match",
			currentVersion: SchemaVersion,
			storedVersion:  "1.0.0",
		},
		{
			name:           "stored patch higher",
			currentVersion: "1.0.0",
			storedVersion:  "1.0.4",
		},
		{
			name:           "stored minor lower",
			currentVersion: "1.2.0",
			storedVersion:  "1.0.3",
		},
		{
			name:           "v prefix",
			currentVersion: "v1.0.0",
			storedVersion:  "v1.1.0",
		},
		{
			name:           "major version differs",
			currentVersion: "2.0.0",
			storedVersion:  "1.4.0",
			expectCode:     errors.ErrCodeVersionMismatch,
			errorContains:  "major version mismatch",
		},
		{
			name:           "stored is main",
			currentVersion: "1.0.0",
			storedVersion:  "main",
		},
		{
			name:           "current is main",
			currentVersion: "main",
			storedVersion:  "7.0.0",
		},
		{
			name:           "invalid stored version",
			currentVersion: "1.0.0",
			storedVersion:  "not-a-version",
			expectCode:     errors.ErrCodeInvalidVersion,
			errorContains:  "invalid stored schema version",
		},
		{
			name:           "empty stored version",
			currentVersion: "1.0.0",
			storedVersion:  "",
			expectCode:     errors.ErrCodeInvalidVersion,
			errorContains:  "invalid stored schema version",
		},
		{
			name:           "invalid current version",
			currentVersion: "x.y",
			storedVersion:  "1.0.0",
			expectCode:     errors.ErrCodeInvalidVersion,
			errorContains:  "invalid current schema version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSchemaCompatibility(tt.currentVersion, tt.storedVersion)

			if tt.expectCode != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.expectCode, errors.GetCode(err))
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v)
}
