package graphql

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tournevent/parcelbridge/pkg/courier"
)

// ID is a GraphQL ID argument. Clients may send it as a string or as an
// integer literal.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

func idsToStrings(ids []ID) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// ServiceParamInput is one parameter of an additional service.
type ServiceParamInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ServiceInput is an additional service with its parameters as a list.
type ServiceInput struct {
	Name   string              `json:"name"`
	Params []ServiceParamInput `json:"params"`
}

// PackageInput is a package to build from the request sender.
type PackageInput struct {
	Receiver  courier.Party    `json:"receiver"`
	PayerType string           `json:"payerType"`
	Parcels   []courier.Parcel `json:"parcels"`
	Services  []ServiceInput   `json:"services"`
	Reference string           `json:"reference"`
}

// SendPackagesInput registers packages from one sender in a single call.
type SendPackagesInput struct {
	Sender   courier.Party  `json:"sender"`
	Packages []PackageInput `json:"packages"`
}

// DocumentInput selects the packages and layout of a generated document.
type DocumentInput struct {
	SessionID     string        `json:"sessionId"`
	PackageIDs    []ID          `json:"packageIds"`
	SessionType   string        `json:"sessionType"`
	PickupAddress courier.Party `json:"pickupAddress"`
	FileFormat    string        `json:"fileFormat"`
	PageFormat    string        `json:"pageFormat"`
	LabelType     string        `json:"labelType"`
}

// PickupInput orders a courier; its fields match courier.PickupRequest.
type PickupInput = courier.PickupRequest
