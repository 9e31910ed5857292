package cli

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txprop/internal/coordinator"
	"github.com/roach88/txprop/internal/ir"
	"github.com/roach88/txprop/internal/token"
)

var inspectID = ir.MustParseTxID("00112233-4455-6677-8899-aabbccddeeff")

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func testCookie() []byte {
	return token.EncodeCookie(token.Cookie{
		Signature:   token.DefaultCookieSignature,
		ID:          inspectID,
		Whereabouts: coordinator.EncodeWhereabouts("node-b:7400"),
		Payload:     []byte{0xde, 0xad, 0xbe, 0xef},
	})
}

func TestInspectToken(t *testing.T) {
	payload := `{"coordinator":"a","tx":"00112233-4455-6677-8899-aabbccddeeff"}`
	tok := token.EncodeToken(token.DefaultVersion, inspectID, []byte(payload))

	stdout, _, err := execute(t, "inspect", "token", hex.EncodeToString(tok))
	require.NoError(t, err)
	newGolden(t).Assert(t, "inspect_token", []byte(stdout))

	stdout, _, err = execute(t, "inspect", "token", hex.EncodeToString(tok), "--format", "json")
	require.NoError(t, err)
	var view TokenView
	decodeData(t, stdout, &view)
	assert.Equal(t, TokenView{
		Version: "1.0",
		TxID:    inspectID.String(),
		Payload: PayloadView{Bytes: len(payload), JSON: payload},
	}, view)
}

func TestInspectToken_BinaryPayload(t *testing.T) {
	tok := token.EncodeToken(token.Version{Major: 3, Minor: 7}, inspectID, []byte{0x01, 0x02})

	stdout, _, err := execute(t, "inspect", "token", hex.EncodeToString(tok), "--format", "json")
	require.NoError(t, err)
	var view TokenView
	decodeData(t, stdout, &view)
	assert.Equal(t, "3.7", view.Version)
	assert.Equal(t, PayloadView{Bytes: 2, Hex: "0102"}, view.Payload)
}

func TestInspectToken_Stdin(t *testing.T) {
	tok := token.EncodeToken(token.DefaultVersion, inspectID, nil)
	h := hex.EncodeToString(tok)

	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetErr(&strings.Builder{})
	// Line breaks inside the pasted value are ignored.
	cmd.SetIn(strings.NewReader(h[:20] + "\n" + h[20:] + "\n"))
	cmd.SetArgs([]string{"inspect", "token", "-", "--format", "json"})
	require.NoError(t, cmd.Execute())

	var view TokenView
	decodeData(t, out.String(), &view)
	assert.Equal(t, inspectID.String(), view.TxID)
	assert.Equal(t, 0, view.Payload.Bytes)
}

func TestInspectCookie(t *testing.T) {
	stdout, _, err := execute(t, "inspect", "cookie", hex.EncodeToString(testCookie()))
	require.NoError(t, err)
	newGolden(t).Assert(t, "inspect_cookie", []byte(stdout))
}

func TestInspectCookie_ExplicitWhereaboutsLen(t *testing.T) {
	stdout, _, err := execute(t, "inspect", "cookie", "--whereabouts-len", "0", hex.EncodeToString(testCookie()))
	require.NoError(t, err)
	newGolden(t).Assert(t, "inspect_cookie_raw", []byte(stdout))
}

func TestInspectCookie_ForeignWhereabouts(t *testing.T) {
	c := token.EncodeCookie(token.Cookie{
		Signature:   token.DefaultCookieSignature,
		ID:          inspectID,
		Whereabouts: []byte{0xaa, 0xbb, 0xcc},
		Payload:     []byte{0x01},
	})

	stdout, _, err := execute(t, "inspect", "cookie", "--whereabouts-len", "3", hex.EncodeToString(c), "--format", "json")
	require.NoError(t, err)
	var view CookieView
	decodeData(t, stdout, &view)
	assert.Equal(t, "aabbcc", view.Whereabouts)
	assert.Empty(t, view.Address)
	assert.Equal(t, PayloadView{Bytes: 1, Hex: "01"}, view.Payload)
}

func TestInspect_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{
			name:     "short_token",
			args:     []string{"inspect", "token", "0100000000000000"},
			wantCode: "INVALID_FORMAT",
			wantExit: ExitFailure,
		},
		{
			name:     "short_cookie",
			args:     []string{"inspect", "cookie", hex.EncodeToString(make([]byte, 31))},
			wantCode: "INVALID_FORMAT",
			wantExit: ExitFailure,
		},
		{
			name:     "whereabouts_past_end",
			args:     []string{"inspect", "cookie", "--whereabouts-len", "10", hex.EncodeToString(make([]byte, 33))},
			wantCode: "INVALID_FORMAT",
			wantExit: ExitFailure,
		},
		{
			name:     "not_hex",
			args:     []string{"inspect", "token", "zz"},
			wantCode: codeCommand,
			wantExit: ExitCommandError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Equal(t, tt.wantCode, decodeError(t, stdout))
		})
	}
}
