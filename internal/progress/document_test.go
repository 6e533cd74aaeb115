package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDocumentJSONOmitsUnsetTimestamps(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Document{Trauma: 5})
	require.NoError(t, err)
	require.JSONEq(t, `{"trauma":5,"upper":0,"lower":0}`, string(data))
}

func TestDocumentJSONKeepsExtraFields(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	doc := Document{
		Upper:     2,
		CreatedAt: &created,
		Extra: map[string]any{
			"note":      "from the old client",
			"upper":     99,
			"updatedAt": "stale",
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"trauma": 0,
		"upper": 2,
		"lower": 0,
		"createdAt": "2026-10-19T12:00:00Z",
		"note": "from the old client"
	}`, string(data))
}
