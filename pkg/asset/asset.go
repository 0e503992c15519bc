// Package asset defines the asset descriptor shared by every custody
// operation: an amount paired with either a token-contract reference or a
// native denomination.
package asset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetInfo identifies the class of a fungible asset: a balance managed by a
// token contract, or a ledger-native denomination. Exactly one variant is set.
type AssetInfo struct {
	Token       *TokenInfo       `json:"token,omitempty"`
	NativeToken *NativeTokenInfo `json:"native_token,omitempty"`
}

// TokenInfo references a token contract by address.
type TokenInfo struct {
	ContractAddr common.Address `json:"contract_addr"`
}

// NativeTokenInfo references a ledger-native denomination (e.g. "uusd").
type NativeTokenInfo struct {
	Denom string `json:"denom"`
}

// TokenAsset builds a token-contract asset info.
func TokenAsset(contractAddr common.Address) AssetInfo {
	return AssetInfo{Token: &TokenInfo{ContractAddr: contractAddr}}
}

// NativeAsset builds a native-denomination asset info.
func NativeAsset(denom string) AssetInfo {
	return AssetInfo{NativeToken: &NativeTokenInfo{Denom: denom}}
}

// IsNative reports whether the asset is a native denomination.
func (info AssetInfo) IsNative() bool {
	return info.NativeToken != nil
}

// Key returns a stable per-asset-class key used for custody accounting
// and logging. Format: "token:0x..." or "native:<denom>".
func (info AssetInfo) Key() string {
	if info.Token != nil {
		return "token:" + info.Token.ContractAddr.Hex()
	}
	return "native:" + info.NativeToken.Denom
}

// Equal reports whether two asset infos reference the same asset class.
func (info AssetInfo) Equal(other AssetInfo) bool {
	return info.Key() == other.Key()
}

// Validate checks that exactly one variant is populated.
func (info AssetInfo) Validate() error {
	switch {
	case info.Token != nil && info.NativeToken != nil:
		return fmt.Errorf("asset info has both token and native_token variants")
	case info.Token == nil && info.NativeToken == nil:
		return fmt.Errorf("asset info has neither token nor native_token variant")
	case info.NativeToken != nil && info.NativeToken.Denom == "":
		return fmt.Errorf("native asset has empty denom")
	}
	return nil
}

// UnmarshalJSON enforces the closed two-variant schema: exactly one of
// "token" or "native_token", no unknown keys.
func (info *AssetInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("asset info must have exactly one variant, got %d keys", len(raw))
	}
	if tok, ok := raw["token"]; ok {
		var t TokenInfo
		if err := strictUnmarshal(tok, &t); err != nil {
			return fmt.Errorf("token variant: %w", err)
		}
		*info = AssetInfo{Token: &t}
		return nil
	}
	if nat, ok := raw["native_token"]; ok {
		var n NativeTokenInfo
		if err := strictUnmarshal(nat, &n); err != nil {
			return fmt.Errorf("native_token variant: %w", err)
		}
		if n.Denom == "" {
			return fmt.Errorf("native_token variant: empty denom")
		}
		*info = AssetInfo{NativeToken: &n}
		return nil
	}
	for k := range raw {
		return fmt.Errorf("unknown asset info variant %q", k)
	}
	return nil
}

// Asset is an asset class paired with an amount.
type Asset struct {
	Amount Uint128   `json:"amount"`
	Info   AssetInfo `json:"info"`
}

// New builds an asset from an info and amount.
func New(info AssetInfo, amount Uint128) Asset {
	return Asset{Amount: amount, Info: info}
}

// Validate checks the descriptor's structural invariants.
func (a Asset) Validate() error {
	return a.Info.Validate()
}

// String renders the asset for logs, e.g. "1000 native:uusd".
func (a Asset) String() string {
	return fmt.Sprintf("%s %s", a.Amount.String(), a.Info.Key())
}

// UnmarshalJSON decodes an asset with the closed {"amount","info"} schema.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if k != "amount" && k != "info" {
			return fmt.Errorf("unknown asset field %q", k)
		}
	}
	amt, ok := raw["amount"]
	if !ok {
		return fmt.Errorf("asset missing amount")
	}
	inf, ok := raw["info"]
	if !ok {
		return fmt.Errorf("asset missing info")
	}
	if err := json.Unmarshal(amt, &a.Amount); err != nil {
		return err
	}
	return json.Unmarshal(inf, &a.Info)
}

// strictUnmarshal decodes JSON rejecting unknown fields.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
