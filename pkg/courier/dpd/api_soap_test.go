package dpd_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/tournevent/parcelbridge/pkg/courier/dpd"
)

type soapServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

func newSOAPServer(t *testing.T, status int, reply string) *soapServer {
	t.Helper()
	s := &soapServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, string(body))
		s.mu.Unlock()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "text/xml")
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *soapServer) lastRequest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ""
	}
	return s.requests[len(s.requests)-1]
}

func envelope(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/"><S:Body>` +
		body +
		`</S:Body></S:Envelope>`
}

func newSOAPClient(url string, version int) *dpd.SOAPAPIClient {
	return dpd.NewSOAPAPIClient(dpd.SOAPAPIClientConfig{
		WSDLURL:    url + "?WSDL",
		APIVersion: version,
	})
}

func TestSOAPAPIClient_GeneratePackagesNumbersV1(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:generatePackagesNumbersV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<packages><packageId>33123</packageId><parcels><parcelId>1</parcelId><status>OK</status><waybill>0000079437163U</waybill></parcels><parcels><parcelId>2</parcelId><status>OK</status><waybill>0000079437164U</waybill></parcels><reference>REF123</reference><status>OK</status></packages>
		<sessionId>1711</sessionId><status>OK</status></return></ns2:generatePackagesNumbersV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.GeneratePackagesNumbers(context.Background(), &dpd.PackagesNumbersRequest{
		OpenUML: dpd.OpenUML{Packages: []dpd.Package{{
			Parcels:   []dpd.Parcel{{Weight: 8, Content: "antyramy"}},
			PayerType: "SENDER",
			Receiver:  dpd.Party{Name: "Jan Kowalski", City: "Krakow"},
			Sender:    dpd.Party{FID: "1495", Name: "Janusz Biznesu"},
			Ref1:      "REF123",
			Services: dpd.Services{
				{Name: "cod", Params: map[string]string{"currency": "PLN", "amount": "989.32"}},
				{Name: "inpers"},
			},
		}}},
		Policy:   courier.PolicyAllOrNothing,
		AuthData: dpd.AuthData{MasterFID: "1495", Login: "test", Password: "secret"},
		LangCode: "PL",
	})
	require.NoError(t, err)

	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "1711", resp.SessionID)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "33123", resp.Packages[0].PackageID)
	assert.Equal(t, "REF123", resp.Packages[0].Reference)
	require.Len(t, resp.Packages[0].Parcels, 2)
	assert.Equal(t, "0000079437164U", resp.Packages[0].Parcels[1].Waybill)

	sent := srv.lastRequest()
	assert.Contains(t, sent, "<dpd:generatePackagesNumbersV1>")
	assert.Contains(t, sent, "<openUMLV1><packages><parcels><weight>8</weight><content>antyramy</content></parcels>")
	assert.Contains(t, sent, "<pkgNumsGenerationPolicyV1>ALL_OR_NOTHING</pkgNumsGenerationPolicyV1>")
	assert.Contains(t, sent, "<authDataV1><masterFid>1495</masterFid><login>test</login><password>secret</password></authDataV1>")
	assert.Contains(t, sent, "<services><cod><amount>989.32</amount><currency>PLN</currency></cod><inpers></inpers></services>")
	assert.Contains(t, sent, "<langCode>PL</langCode>")
}

func TestSOAPAPIClient_GeneratePackagesNumbersV2(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:generatePackagesNumbersV2Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<Status>OK</Status><SessionId>1712</SessionId>
		<Packages><Package><PackageId>44001</PackageId><Status>OK</Status><Reference>A</Reference>
		<Parcels><Parcel><ParcelId>9</ParcelId><Status>OK</Status><Waybill>0000079437199U</Waybill></Parcel></Parcels>
		</Package></Packages></return></ns2:generatePackagesNumbersV2Response>`))
	client := newSOAPClient(srv.URL, 2)

	resp, err := client.GeneratePackagesNumbers(context.Background(), &dpd.PackagesNumbersRequest{})
	require.NoError(t, err)

	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "1712", resp.SessionID)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "44001", resp.Packages[0].PackageID)
	require.Len(t, resp.Packages[0].Parcels, 1)
	assert.Equal(t, "9", resp.Packages[0].Parcels[0].ParcelID)
	assert.Contains(t, srv.lastRequest(), "<dpd:generatePackagesNumbersV2>")
}

func TestSOAPAPIClient_GenerateSpeedLabels(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:generateSpedLabelsV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<documentData>JVBERi0x
		LjQ=</documentData><session><statusInfo><status>OK</status></statusInfo></session></return></ns2:generateSpedLabelsV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.GenerateSpeedLabels(context.Background(), &dpd.DocumentRequest{
		ServicesParams: dpd.ServicesParams{
			PickupAddress: dpd.Party{FID: "1495"},
			Policy:        courier.PolicyStopOnFirstError,
			Session:       dpd.Session{Packages: []dpd.SessionPackage{{PackageID: "33123"}}, SessionType: "DOMESTIC"},
		},
		OutputDocFormat:     "PDF",
		OutputDocPageFormat: "A4",
		OutputLabelType:     "BIC3",
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, []byte("%PDF-1.4"), resp.DocumentData)

	sent := srv.lastRequest()
	assert.Contains(t, sent, "<dpd:generateSpedLabelsV1>")
	assert.Contains(t, sent, "<dpdServicesParamsV1><pickupAddress><fid>1495</fid></pickupAddress><policy>STOP_ON_FIRST_ERROR</policy>")
	assert.Contains(t, sent, "<session><packages><packageId>33123</packageId></packages><sessionType>DOMESTIC</sessionType></session>")
	assert.Contains(t, sent, "<outputLabelTypeV2>BIC3</outputLabelTypeV2>")
}

func TestSOAPAPIClient_GenerateProtocol(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:generateProtocolV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<documentData>JVBERi0xLjQ=</documentData><documentId>LP_7711</documentId>
		<session><packages><packageId>33123</packageId><statusInfo><status>OK</status></statusInfo>
		<parcels><parcelId>1</parcelId><waybill>0000079437163U</waybill><statusInfo><status>OK</status></statusInfo></parcels></packages>
		<sessionId>1711</sessionId><statusInfo><status>OK</status></statusInfo></session></return></ns2:generateProtocolV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.GenerateProtocol(context.Background(), &dpd.DocumentRequest{
		ServicesParams:      dpd.ServicesParams{Session: dpd.Session{SessionID: "1711", SessionType: "DOMESTIC"}},
		OutputDocFormat:     "PDF",
		OutputDocPageFormat: "A4",
	})
	require.NoError(t, err)

	assert.Equal(t, "OK", resp.Status)
	assert.Equal(t, "LP_7711", resp.DocumentID)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "33123", resp.Packages[0].PackageID)
	assert.Equal(t, "0000079437163U", resp.Packages[0].Parcels[0].Waybill)

	sent := srv.lastRequest()
	assert.Contains(t, sent, "<dpd:generateProtocolV1>")
	assert.NotContains(t, sent, "outputLabelTypeV2")
}

func TestSOAPAPIClient_PackagesPickupCall(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:packagesPickupCallV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<prototocols><documentId>LP_7711</documentId><statusInfo><status>OK</status></statusInfo></prototocols>
		<prototocols><documentId>LP_7712</documentId><statusInfo><status>DISALLOWED</status></statusInfo></prototocols>
		</return></ns2:packagesPickupCallV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.PackagesPickupCall(context.Background(), &dpd.PickupCallRequest{
		PickupParams: dpd.PickupParams{
			Protocols:      []dpd.ProtocolRef{{DocumentID: "LP_7711"}, {DocumentID: "LP_7712"}},
			PickupDate:     "2017-08-23",
			PickupTimeFrom: "13:00",
			PickupTimeTo:   "16:00",
			Policy:         courier.PolicyIgnoreErrors,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []dpd.ProtocolResult{
		{DocumentID: "LP_7711", Status: "OK"},
		{DocumentID: "LP_7712", Status: "DISALLOWED"},
	}, resp.Protocols)
	assert.Contains(t, srv.lastRequest(), "<dpdPickupParamsV1><protocols><documentId>LP_7711</documentId></protocols>")
}

func TestSOAPAPIClient_FindPostalCode(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:findPostalCodeV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return><status>OK</status></return></ns2:findPostalCodeV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.FindPostalCode(context.Background(), &dpd.PostalCodeRequest{
		PostalCode: dpd.Place{CountryCode: "PL", ZipCode: "33100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	assert.Contains(t, srv.lastRequest(), "<postalCodeV1><countryCode>PL</countryCode><zipCode>33100</zipCode></postalCodeV1>")
}

func TestSOAPAPIClient_GetCourierOrderAvailability(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:getCourierOrderAvailabilityV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return>
		<ranges><offset>0</offset><range>9:00-15:00</range><timeFrom>9:00</timeFrom><timeTo>15:00</timeTo></ranges>
		<ranges><offset>1</offset><range>8:00-16:00</range><timeFrom>8:00</timeFrom><timeTo>16:00</timeTo></ranges>
		<status>OK</status></return></ns2:getCourierOrderAvailabilityV1Response>`))
	client := newSOAPClient(srv.URL, 1)

	resp, err := client.GetCourierOrderAvailability(context.Background(), &dpd.CourierAvailabilityRequest{
		SenderPlace: dpd.Place{CountryCode: "PL", ZipCode: "33100"},
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	require.Len(t, resp.Ranges, 2)
	assert.Equal(t, 1, resp.Ranges[1].Offset)
	assert.Equal(t, "16:00", resp.Ranges[1].TimeTo)
	assert.Contains(t, srv.lastRequest(), "<senderPlaceV1>")
}

func TestSOAPAPIClient_Fault(t *testing.T) {
	srv := newSOAPServer(t, http.StatusInternalServerError, envelope(`<S:Fault><faultcode>S:Server</faultcode><faultstring>Login failed</faultstring></S:Fault>`))
	client := newSOAPClient(srv.URL, 1)

	_, err := client.FindPostalCode(context.Background(), &dpd.PostalCodeRequest{})
	require.Error(t, err)

	var callErr *dpd.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "findPostalCodeV1", callErr.Operation)
	assert.Contains(t, string(callErr.Request), "<dpd:findPostalCodeV1>")

	var apiErr *dpd.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "S:Server", apiErr.Code)
	assert.Equal(t, "Login failed", apiErr.Description)
}

func TestSOAPAPIClient_CircuitOpens(t *testing.T) {
	srv := newSOAPServer(t, http.StatusBadGateway, "upstream down")
	client := dpd.NewSOAPAPIClient(dpd.SOAPAPIClientConfig{
		WSDLURL:          srv.URL,
		FailureThreshold: 2,
	})
	ctx := context.Background()

	for range 2 {
		_, err := client.FindPostalCode(ctx, &dpd.PostalCodeRequest{})
		var apiErr *dpd.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "HTTP_502", apiErr.Code)
	}

	srv.mu.Lock()
	calls := len(srv.requests)
	srv.mu.Unlock()

	_, err := client.FindPostalCode(ctx, &dpd.PostalCodeRequest{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "service unavailable"))

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, calls, len(srv.requests))
}

func TestSOAPAPIClient_CanceledCallsKeepCircuitClosed(t *testing.T) {
	srv := newSOAPServer(t, http.StatusOK, envelope(`<ns2:findPostalCodeV1Response xmlns:ns2="http://dpdservices.dpd.com.pl/"><return><status>OK</status></return></ns2:findPostalCodeV1Response>`))
	client := dpd.NewSOAPAPIClient(dpd.SOAPAPIClientConfig{
		WSDLURL:          srv.URL,
		FailureThreshold: 2,
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := client.FindPostalCode(canceled, &dpd.PostalCodeRequest{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotContains(t, err.Error(), "service unavailable")
	}

	resp, err := client.FindPostalCode(context.Background(), &dpd.PostalCodeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestClient_SOAPTransportFailureIsRecorded(t *testing.T) {
	srv := newSOAPServer(t, http.StatusInternalServerError, envelope(`<S:Fault><faultcode>S:Server</faultcode><faultstring>boom</faultstring></S:Fault>`))
	cfg := testConfig
	cfg.WSDLURL = srv.URL

	client, err := dpd.New(cfg, nil, nil)
	require.NoError(t, err)
	rec := &recorder{}
	client.SetDiagnostics(rec)

	_, err = client.CheckPostCode(context.Background(), "33-100", "")
	require.Error(t, err)
	assert.True(t, courier.IsTransport(err))
	assert.Contains(t, string(rec.entries["findPostalCodeV1"]), "<zipCode>33100</zipCode>")
}
