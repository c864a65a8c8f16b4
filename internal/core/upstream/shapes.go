package upstream

import (
	"github.com/tidwall/gjson"
)

// Shape tags the envelope an upstream payload arrived in.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeStatusDataToken
	ShapeStatusData
	ShapeDataToken
	ShapeData
	ShapeDirectToken
	ShapeFlatRecord
	ShapeHolders
	ShapeTransactions
	ShapeArray
	ShapeDataArray
	ShapeDataTxs
	ShapeDataPoints
)

var shapeNames = map[Shape]string{
	ShapeUnknown:         "unknown",
	ShapeStatusDataToken: "status.data.token",
	ShapeStatusData:      "status.data",
	ShapeDataToken:       "data.token",
	ShapeData:            "data",
	ShapeDirectToken:     "token",
	ShapeFlatRecord:      "flat",
	ShapeHolders:         "holders",
	ShapeTransactions:    "transactions",
	ShapeArray:           "array",
	ShapeDataArray:       "data[]",
	ShapeDataTxs:         "data.txs",
	ShapeDataPoints:      "data.points",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "unknown"
}

// Match is a recognized payload extracted from an upstream body.
type Match struct {
	Shape   Shape
	Payload gjson.Result
}

// Detector recognizes one envelope shape.
type Detector func(root gjson.Result) (Match, bool)

// Detect runs detectors in order against body and returns the first match.
func Detect(body []byte, detectors ...Detector) (Match, bool) {
	if !gjson.ValidBytes(body) {
		return Match{}, false
	}
	root := gjson.ParseBytes(body)
	for _, detect := range detectors {
		if detect == nil {
			continue
		}
		if match, ok := detect(root); ok {
			return match, true
		}
	}
	return Match{}, false
}

// TokenDetailShapes lists the envelopes a token detail payload has been seen in.
var TokenDetailShapes = []Detector{DetectDataToken, DetectData, DetectDirectToken, DetectFlatRecord}

// HolderShapes lists the envelopes a holder list has been seen in.
var HolderShapes = []Detector{DetectStatusData, DetectHolders, DetectArray, DetectDataArray}

// LegacyTransactionShapes lists envelopes returned by the older transaction endpoints.
var LegacyTransactionShapes = []Detector{DetectStatusDataArray, DetectDataTxs, DetectTransactions, DetectArray}

// DetectDataToken matches {data:{token:{...}}}.
func DetectDataToken(root gjson.Result) (Match, bool) {
	token := root.Get("data.token")
	if !truthy(token) || !token.IsObject() {
		return Match{}, false
	}
	if statusOK(root) {
		return Match{Shape: ShapeStatusDataToken, Payload: token}, true
	}
	return Match{Shape: ShapeDataToken, Payload: token}, true
}

// DetectData matches any truthy data field.
func DetectData(root gjson.Result) (Match, bool) {
	data := root.Get("data")
	if !truthy(data) {
		return Match{}, false
	}
	if statusOK(root) {
		return Match{Shape: ShapeStatusData, Payload: data}, true
	}
	return Match{Shape: ShapeData, Payload: data}, true
}

// DetectStatusData matches {status:1, data:...}.
func DetectStatusData(root gjson.Result) (Match, bool) {
	data := root.Get("data")
	if !statusOK(root) || !truthy(data) {
		return Match{}, false
	}
	return Match{Shape: ShapeStatusData, Payload: data}, true
}

// DetectStatusDataArray matches {status:1, data:[...]}.
func DetectStatusDataArray(root gjson.Result) (Match, bool) {
	data := root.Get("data")
	if !statusOK(root) || !data.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeStatusData, Payload: data}, true
}

// DetectDirectToken matches {token:{...}}.
func DetectDirectToken(root gjson.Result) (Match, bool) {
	token := root.Get("token")
	if !token.IsObject() {
		return Match{}, false
	}
	return Match{Shape: ShapeDirectToken, Payload: token}, true
}

// DetectFlatRecord matches a record returned at the top level with a success flag.
func DetectFlatRecord(root gjson.Result) (Match, bool) {
	if !truthy(root.Get("success")) || !truthy(root.Get("symbol")) {
		return Match{}, false
	}
	return Match{Shape: ShapeFlatRecord, Payload: root}, true
}

// DetectHolders matches {holders:[...]}.
func DetectHolders(root gjson.Result) (Match, bool) {
	holders := root.Get("holders")
	if !truthy(holders) {
		return Match{}, false
	}
	return Match{Shape: ShapeHolders, Payload: holders}, true
}

// DetectTransactions matches {transactions:[...]}.
func DetectTransactions(root gjson.Result) (Match, bool) {
	txs := root.Get("transactions")
	if !txs.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeTransactions, Payload: txs}, true
}

// DetectArray matches a bare top-level array.
func DetectArray(root gjson.Result) (Match, bool) {
	if !root.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeArray, Payload: root}, true
}

// DetectDataArray matches {data:[...]} without a status flag.
func DetectDataArray(root gjson.Result) (Match, bool) {
	data := root.Get("data")
	if !data.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeDataArray, Payload: data}, true
}

// DetectDataTxs matches {status:1, data:{txs:[...]}}.
func DetectDataTxs(root gjson.Result) (Match, bool) {
	txs := root.Get("data.txs")
	if !statusOK(root) || !txs.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeDataTxs, Payload: txs}, true
}

// DetectNonEmptyDataTxs is DetectDataTxs restricted to at least one transaction.
func DetectNonEmptyDataTxs(root gjson.Result) (Match, bool) {
	match, ok := DetectDataTxs(root)
	if !ok || len(match.Payload.Array()) == 0 {
		return Match{}, false
	}
	return match, true
}

// DetectDataPoints matches {status:1, data:{points:[...]}}.
func DetectDataPoints(root gjson.Result) (Match, bool) {
	points := root.Get("data.points")
	if !statusOK(root) || !points.IsArray() {
		return Match{}, false
	}
	return Match{Shape: ShapeDataPoints, Payload: points}, true
}

func statusOK(root gjson.Result) bool {
	status := root.Get("status")
	switch status.Type {
	case gjson.Number:
		return status.Int() == 1
	case gjson.String:
		return status.String() == "1"
	default:
		return false
	}
}

// truthy mirrors loose JSON truthiness: present, non-null, non-false, non-zero, non-empty.
func truthy(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Float() != 0
	case gjson.String:
		return r.String() != ""
	default:
		return true
	}
}
