package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/favourpro/internal/affinity"
	"github.com/rcliao/favourpro/internal/model"
)

func runCLI(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	require.NoError(t, RootCmd.Execute())
	return out.String()
}

// Cobra keeps flag values between Execute calls, so each subcommand runs
// once with every flag it needs spelled out.
func TestCommandsRoundTrip(t *testing.T) {
	t.Setenv("FAVOURPRO_DATA_DIR", t.TempDir())
	t.Setenv("FAVOURPRO_CONFIG", "")

	var res affinity.TurnResult
	out := runCLI(t, "", "turn", "-f", "json", "-u", "42", "Hello!\n[Favour: 5, Attitude: warm]")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Hello!", res.Text)
	assert.True(t, res.Updated)
	assert.Equal(t, model.Record{Favour: 5, Attitude: "warm", Relationship: "stranger"}, res.Record)

	out = runCLI(t, "", "get", "-f", "text", "-u", "42")
	assert.Equal(t, "favour=5 attitude=\"warm\" relationship=\"stranger\"\n", out)

	out = runCLI(t, `{"7":{"favour":-3,"attitude":"cold","relationship":"rival"}}`, "import", "-f", "text")
	assert.Equal(t, "imported 1 record(s)\n", out)

	var ranked []affinity.Ranked
	out = runCLI(t, "", "rank", "-f", "json", "--bottom", "1")
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, "7", ranked[0].UserID)

	out = runCLI(t, "", "reset", "-f", "text", "--negative")
	assert.Equal(t, "reset 1 record(s)\n", out)

	var entries []model.Entry
	out = runCLI(t, "", "export", "-f", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, model.Key("42"), entries[0].Key)
}
