package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mastermeng/fabricrest/internal/apiclient"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonBlank(t *testing.T) {
	assert.Equal(t, []string{"CAR1", "Toyota"}, nonBlank([]string{"CAR1", " ", "", "Toyota"}))
	assert.Equal(t, []string{}, nonBlank(nil))
}

func TestParseTransient(t *testing.T) {
	data, err := parseTransient("")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = parseTransient(`{"car":{"make":"Toyota"}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"car": map[string]interface{}{"make": "Toyota"}}, data)

	_, err = parseTransient(`[1,2]`)
	assert.Error(t, err)
}

func TestInvokeRequest(t *testing.T) {
	opts := &chaincodeOptions{
		channelName:   "mychannel",
		chaincodeName: "fabcar",
		fcn:           "createCar",
		args:          []string{"CAR1", "", "Toyota"},
		peers:         []string{"", "peer0.org1.example.com"},
	}

	req, err := opts.invokeRequest()
	require.NoError(t, err)
	assert.Equal(t, apiclient.InvokeRequest{
		ChannelName:   "mychannel",
		ChaincodeName: "fabcar",
		Fcn:           "createCar",
		Args:          []string{"CAR1", "Toyota"},
		Peers:         []string{"peer0.org1.example.com"},
	}, req)
}

func TestInvokeRequiresChaincode(t *testing.T) {
	for _, name := range []string{"invoke", "query"} {
		cmd := newMainCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{name, "-C", "mychannel", "-f", "createCar"})
		err := cmd.Execute()
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), `"chaincode"`, name)
	}
}

// Every command builds its own flags, so the qscc default must not reach
// the chaincode commands of the same tree.
func TestCommandTreeChaincodePaths(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":"ok","error":null,"errorData":null}`)
	}))
	defer srv.Close()

	tests := []struct {
		args []string
		path string
	}{
		{[]string{"invoke", "-C", "mychannel", "-n", "fabcar", "-f", "createCar", "-a", "CAR1"}, "/channels/mychannel/chaincodes/fabcar"},
		{[]string{"query", "-C", "mychannel", "-n", "fabcar", "-f", "queryCar", "-a", `["CAR1"]`}, "/channels/mychannel/chaincodes/fabcar"},
		{[]string{"qscc", "-C", "mychannel", "-f", "GetChainInfo"}, "/qscc/channels/mychannel/chaincodes/qscc"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			cmd := newMainCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(append(tt.args, "--url", srv.URL))
			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.path, <-paths)
			assert.JSONEq(t, `{"result":"ok","error":null,"errorData":null}`, out.String())
		})
	}
}

func TestPrintEnvelopeTransportFailure(t *testing.T) {
	var out bytes.Buffer
	err := printEnvelope(&out, nil, errors.New("connection refused"))
	assert.EqualError(t, err, "Error: connection refused")

	env := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &env))
	assert.Nil(t, env["result"])
	assert.Equal(t, "Error", env["error"])
	assert.Equal(t, "connection refused", env["errorData"])
}

func TestPrintEnvelopeSuccess(t *testing.T) {
	var out bytes.Buffer
	err := printEnvelope(&out, &apiclient.Envelope{Result: json.RawMessage(`{"ok":true}`)}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"ok":true},"error":null,"errorData":null}`, out.String())
}
