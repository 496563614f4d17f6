// QBXML request and response types for the QuickBooks Desktop bridge
//
// Message shapes based on the QBXML 13.0 SDK reference (StandardTerms messages).
package services

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/desertthunder/termsync/internal/models"
)

const (
	qbxmlVersion = "13.0"
	qbxmlOnError = "continueOnError"

	// stdDueDays is written on every term the sync creates. The due window is
	// not part of the reconciled data; only Name and StdDiscountDays are.
	stdDueDays = 30
)

// QBXML status codes checked by the desktop client
const (
	statusOK         = "0"
	statusNameExists = "3100"
)

// TermsQueryRequest is the QBXML envelope for listing every standard term.
type TermsQueryRequest struct {
	XMLName xml.Name         `xml:"QBXML"`
	Msgs    termsQueryMsgsRq `xml:"QBXMLMsgsRq"`
}

type termsQueryMsgsRq struct {
	OnError string   `xml:"onError,attr"`
	Query   struct{} `xml:"StandardTermsQueryRq"`
}

// TermsAddRequest is the QBXML envelope for a batched term creation.
type TermsAddRequest struct {
	XMLName xml.Name       `xml:"QBXML"`
	Msgs    termsAddMsgsRq `xml:"QBXMLMsgsRq"`
}

type termsAddMsgsRq struct {
	OnError  string      `xml:"onError,attr"`
	Requests []TermAddRq `xml:"StandardTermsAddRq"`
}

// TermAddRq is one add request within a batch. RequestID is the 1-based
// position of the term in the batch, so responses can be matched back.
type TermAddRq struct {
	RequestID string      `xml:"requestID,attr"`
	Add       TermAddData `xml:"StandardTermsAdd"`
}

// TermAddData is the payload of a single StandardTermsAdd element.
// StdDiscountDays carries the term id (the cross-reference field).
type TermAddData struct {
	Name            string `xml:"Name"`
	StdDueDays      int    `xml:"StdDueDays"`
	StdDiscountDays int    `xml:"StdDiscountDays"`
}

// TermsQueryResponse mirrors the response envelope of a standard terms query.
type TermsQueryResponse struct {
	XMLName xml.Name         `xml:"QBXML"`
	Msgs    termsQueryMsgsRs `xml:"QBXMLMsgsRs"`
}

type termsQueryMsgsRs struct {
	Query TermsQueryRs `xml:"StandardTermsQueryRs"`
}

// TermsQueryRs carries the status attributes and term records of a query response.
type TermsQueryRs struct {
	StatusCode     string    `xml:"statusCode,attr"`
	StatusSeverity string    `xml:"statusSeverity,attr"`
	StatusMessage  string    `xml:"statusMessage,attr"`
	Terms          []TermRet `xml:"StandardTermsRet"`
}

// TermRet is a single standard term record returned by QuickBooks Desktop.
// StdDiscountDays is nil for records that were not created by the sync and
// carry no cross-reference id.
type TermRet struct {
	ListID          string `xml:"ListID"`
	Name            string `xml:"Name"`
	IsActive        bool   `xml:"IsActive"`
	StdDueDays      int    `xml:"StdDueDays"`
	StdDiscountDays *int   `xml:"StdDiscountDays"`
}

// TermsAddResponse mirrors the response envelope of a batched term creation.
type TermsAddResponse struct {
	XMLName xml.Name       `xml:"QBXML"`
	Msgs    termsAddMsgsRs `xml:"QBXMLMsgsRs"`
}

type termsAddMsgsRs struct {
	Results []TermAddRs `xml:"StandardTermsAddRs"`
}

// TermAddRs is the per-request outcome of a batched term creation.
type TermAddRs struct {
	RequestID     string   `xml:"requestID,attr"`
	StatusCode    string   `xml:"statusCode,attr"`
	StatusMessage string   `xml:"statusMessage,attr"`
	Term          *TermRet `xml:"StandardTermsRet"`
}

// MarshalTermsQuery renders the QBXML request for listing all standard terms.
func MarshalTermsQuery() ([]byte, error) {
	return marshalQBXML(TermsQueryRequest{Msgs: termsQueryMsgsRq{OnError: qbxmlOnError}})
}

// MarshalTermsAdd renders a batched QBXML request creating the given terms in order.
func MarshalTermsAdd(terms []models.Term) ([]byte, error) {
	msgs := termsAddMsgsRq{OnError: qbxmlOnError}
	for i, term := range terms {
		msgs.Requests = append(msgs.Requests, TermAddRq{
			RequestID: strconv.Itoa(i + 1),
			Add: TermAddData{
				Name:            term.Name,
				StdDueDays:      stdDueDays,
				StdDiscountDays: term.ID,
			},
		})
	}

	return marshalQBXML(TermsAddRequest{Msgs: msgs})
}

func marshalQBXML(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\"?><?qbxml version=%q?>", qbxmlVersion)
	buf.Write(body)

	return buf.Bytes(), nil
}

// ParseTermsQuery decodes a query response and checks its status attributes.
func ParseTermsQuery(data []byte) ([]TermRet, error) {
	var resp TermsQueryResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	rs := resp.Msgs.Query
	if rs.StatusCode != statusOK {
		return nil, fmt.Errorf("terms query failed (status %s): %s", rs.StatusCode, rs.StatusMessage)
	}

	return rs.Terms, nil
}

// ParseTermsAdd decodes a batched creation response into per-request outcomes.
func ParseTermsAdd(data []byte) ([]TermAddRs, error) {
	var resp TermsAddResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return resp.Msgs.Results, nil
}
