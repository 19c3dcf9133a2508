package graphql_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelbridge/internal/graphql"
	"github.com/tournevent/parcelbridge/pkg/courier/dpd"
)

type gqlResult struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func execute(t *testing.T, exec *graphql.Executor, query string, vars map[string]any) gqlResult {
	t.Helper()

	resp := exec.Execute(context.Background(), graphql.Request{Query: query, Variables: vars})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out gqlResult
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func newTestExecutor(t *testing.T) *graphql.Executor {
	t.Helper()
	resolver, _ := newTestResolver(t, dpd.NewMockAPIClient())
	return graphql.NewExecutor(resolver)
}

func TestExecutor_Health(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `{ health }`, nil)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "ok", out.Data["health"])
}

func TestExecutor_ValidationError(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `{ unknownField }`, nil)
	require.NotEmpty(t, out.Errors)
	assert.Nil(t, out.Data)
	assert.Contains(t, out.Errors[0].Message, "unknownField")
}

func TestExecutor_MissingVariable(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `query($code: String!) { checkPostCode(postCode: $code) { success } }`, nil)
	require.Len(t, out.Errors, 1)
	assert.Nil(t, out.Data)
}

func TestExecutor_CheckPostCode_SelectsFields(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		query Check($code: String!) {
			checkPostCode(postCode: $code, countryCode: "pl") { success postalCode }
			alias: health
		}`, map[string]any{"code": "00-999"})
	require.Empty(t, out.Errors)

	check, ok := out.Data["checkPostCode"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"success": true, "postalCode": "00999"}, check)
	assert.Equal(t, "ok", out.Data["alias"])
}

func TestExecutor_SendPackages(t *testing.T) {
	exec := newTestExecutor(t)

	vars := map[string]any{
		"input": map[string]any{
			"sender": map[string]any{
				"fid": "1495", "name": "Janusz Biznesu", "address": "Chmielna 10",
				"city": "Warszawa", "postalCode": "00999", "countryCode": "PL",
			},
			"packages": []any{
				map[string]any{
					"receiver": map[string]any{
						"name": "Jan Kowalski", "address": "Wielicka 10",
						"city": "Krakow", "postalCode": "30552", "countryCode": "PL",
					},
					"parcels": []any{map[string]any{"weight": 8, "content": "antyramy"}},
					"services": []any{
						map[string]any{"name": "cod", "params": []any{
							map[string]any{"key": "amount", "value": "989.32"},
							map[string]any{"key": "currency", "value": "PLN"},
						}},
					},
				},
			},
		},
	}

	out := execute(t, exec, `
		mutation Send($input: SendPackagesInput!) {
			sendPackages(input: $input) {
				success
				sessionId
				packages { packageId parcels { waybill } }
			}
		}`, vars)
	require.Empty(t, out.Errors)

	sent := out.Data["sendPackages"].(map[string]any)
	assert.Equal(t, true, sent["success"])
	assert.NotEmpty(t, sent["sessionId"])
	packages := sent["packages"].([]any)
	require.Len(t, packages, 1)
	parcels := packages[0].(map[string]any)["parcels"].([]any)
	require.Len(t, parcels, 1)
	assert.NotEmpty(t, parcels[0].(map[string]any)["waybill"])
}

func TestExecutor_FieldErrorCarriesCode(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		mutation {
			pickupRequest(input: {
				protocolIds: ["DOC-77"]
				pickupDate: "23-08-2017"
				pickupTimeFrom: "13:00"
				pickupTimeTo: "16:00"
				contactInfo: { name: "Janusz" }
				pickupAddress: { fid: "1495" }
			}) { success }
		}`, nil)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, []any{"pickupRequest"}, out.Errors[0].Path)
	assert.Equal(t, float64(112), out.Errors[0].Extensions["code"])
	assert.Equal(t, "validation", out.Errors[0].Extensions["kind"])
	assert.Contains(t, out.Data, "pickupRequest")
	assert.Nil(t, out.Data["pickupRequest"])
}

func TestExecutor_GenerateSpeedLabels(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		mutation {
			generateSpeedLabels(input: { packageIds: ["10000002"], pickupAddress: { fid: "1495" } }) {
				success fileFormat pageFormat data
				packages { packageId }
			}
		}`, nil)
	require.Empty(t, out.Errors)

	doc := out.Data["generateSpeedLabels"].(map[string]any)
	assert.Equal(t, true, doc["success"])
	assert.Equal(t, "PDF", doc["fileFormat"])
	assert.Equal(t, "A4", doc["pageFormat"])
	data, err := base64.StdEncoding.DecodeString(doc["data"].(string))
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF-1.4")
	assert.Nil(t, doc["packages"])
}

func TestExecutor_GenerateProtocol(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		mutation {
			generateProtocol(input: { packageIds: [10000002, "10000003"], pickupAddress: { fid: "1495" } }) {
				success documentId
				packages { packageId }
			}
		}`, nil)
	require.Empty(t, out.Errors)

	doc := out.Data["generateProtocol"].(map[string]any)
	assert.Equal(t, true, doc["success"])
	assert.NotEmpty(t, doc["documentId"])
	assert.Equal(t, []any{
		map[string]any{"packageId": "10000002"},
		map[string]any{"packageId": "10000003"},
	}, doc["packages"])
}

func TestExecutor_AddParcelsIntegerID(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		mutation {
			addParcels(packageId: 33123, parcels: [{ weight: 1.5 }]) { success status }
		}`, nil)
	require.Empty(t, out.Errors)
	assert.Equal(t, map[string]any{"success": true, "status": "OK"}, out.Data["addParcels"])

	out = execute(t, exec, `
		mutation($id: ID!) {
			addParcels(packageId: $id, parcels: [{ weight: 1.5 }]) { success }
		}`, map[string]any{"id": 33123})
	require.Empty(t, out.Errors)
	assert.Equal(t, map[string]any{"success": true}, out.Data["addParcels"])
}

func TestExecutor_Fragments(t *testing.T) {
	exec := newTestExecutor(t)

	out := execute(t, exec, `
		query {
			checkCourierAvailability(postCode: "00-999") {
				...lookup
				windows @include(if: false) { range }
				__typename
			}
		}
		fragment lookup on AvailabilityResult { success countryCode }`, nil)
	require.Empty(t, out.Errors)

	avail := out.Data["checkCourierAvailability"].(map[string]any)
	assert.Equal(t, map[string]any{
		"success":     true,
		"countryCode": "PL",
		"__typename":  "AvailabilityResult",
	}, avail)
}

func TestExecutor_PreservesSelectionOrder(t *testing.T) {
	exec := newTestExecutor(t)

	resp := exec.Execute(context.Background(), graphql.Request{
		Query: `{ checkPostCode(postCode: "00999") { status success method } }`,
	})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"checkPostCode":{"status":"OK","success":true,"method":"findPostalCodeV1"}}}`, string(raw))
	assert.Contains(t, string(raw), `{"status":"OK","success":true,"method":"findPostalCodeV1"}`)
}
