package models

import (
	"bytes"
	"encoding/json"
)

// RawRecord is an unvalidated transaction description as returned by a wallet
// or block explorer. Value is in base units (wei); Amount is in display units
// and only consulted when Value is empty. Type is an optional sent/received
// direction the wallet already derived.
type RawRecord struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           Flex   `json:"value"`
	Amount          Flex   `json:"amount"`
	TimeStamp       Flex   `json:"timeStamp"`
	Status          Flex   `json:"status"`
	IsError         Flex   `json:"isError"`
	TxReceiptStatus Flex   `json:"txreceipt_status"`
	Type            Flex   `json:"type"`
}

// Flex is a string that also decodes from JSON numbers and booleans, since
// explorers and wallets disagree on how they encode numeric fields.
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	*f = Flex(b)
	return nil
}

func (f Flex) String() string { return string(f) }
