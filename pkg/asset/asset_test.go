package asset

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseUint128Bounds(t *testing.T) {
	max := "340282366920938463463374607431768211455" // 2^128 - 1
	u, err := ParseUint128(max)
	if err != nil {
		t.Fatalf("max value rejected: %v", err)
	}
	if u.String() != max {
		t.Errorf("roundtrip mismatch: got %s", u.String())
	}

	if _, err := ParseUint128("340282366920938463463374607431768211456"); err == nil {
		t.Error("2^128 accepted, want range error")
	}
}

func TestParseUint128Rejects(t *testing.T) {
	for _, bad := range []string{"", "-1", "+1", "1.5", "0x10", " 1", "1 ", "abc"} {
		if _, err := ParseUint128(bad); err == nil {
			t.Errorf("ParseUint128(%q) accepted, want error", bad)
		}
	}
}

func TestUint128JSON(t *testing.T) {
	u := MustUint128("1005")
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"1005"` {
		t.Errorf("marshal = %s, want \"1005\"", data)
	}

	var back Uint128
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Cmp(u) != 0 {
		t.Errorf("roundtrip mismatch: %s != %s", back.String(), u.String())
	}

	// Numbers are rejected: the full range only survives as a string.
	if err := json.Unmarshal([]byte(`1005`), &back); err == nil {
		t.Error("numeric amount accepted, want error")
	}
}

func TestUint128Arithmetic(t *testing.T) {
	a := MustUint128("1000")
	b := MustUint128("5")

	if got := a.Add(b).String(); got != "1005" {
		t.Errorf("1000 + 5 = %s", got)
	}
	if got := a.Sub(b).String(); got != "995" {
		t.Errorf("1000 - 5 = %s", got)
	}
	if !Zero().IsZero() {
		t.Error("Zero() not zero")
	}

	defer func() {
		if recover() == nil {
			t.Error("underflow did not panic")
		}
	}()
	b.Sub(a)
}

func TestAssetInfoVariants(t *testing.T) {
	native := NativeAsset("uusd")
	if !native.IsNative() {
		t.Error("native asset not native")
	}
	if native.Key() != "native:uusd" {
		t.Errorf("native key = %s", native.Key())
	}

	contract := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token := TokenAsset(contract)
	if token.IsNative() {
		t.Error("token asset reported native")
	}
	if !token.Equal(TokenAsset(contract)) {
		t.Error("same contract not equal")
	}
	if token.Equal(native) {
		t.Error("token equal to native")
	}
}

func TestAssetInfoClosedSchema(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"unknown variant", `{"cw721":{"contract_addr":"0x00000000000000000000000000000000000000aa"}}`},
		{"both variants", `{"token":{"contract_addr":"0x00000000000000000000000000000000000000aa"},"native_token":{"denom":"uusd"}}`},
		{"empty object", `{}`},
		{"extra key in token", `{"token":{"contract_addr":"0x00000000000000000000000000000000000000aa","symbol":"AA"}}`},
		{"extra key in native", `{"native_token":{"denom":"uusd","decimals":6}}`},
		{"empty denom", `{"native_token":{"denom":""}}`},
	}
	for _, tc := range cases {
		var info AssetInfo
		if err := json.Unmarshal([]byte(tc.in), &info); err == nil {
			t.Errorf("%s: accepted, want error", tc.name)
		}
	}
}

func TestAssetDecode(t *testing.T) {
	in := `{"amount":"1000","info":{"native_token":{"denom":"uusd"}}}`
	var a Asset
	if err := json.Unmarshal([]byte(in), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Amount.String() != "1000" || a.Info.Key() != "native:uusd" {
		t.Errorf("decoded %s", a.String())
	}

	for _, bad := range []string{
		`{"amount":"1000"}`,
		`{"info":{"native_token":{"denom":"uusd"}}}`,
		`{"amount":"1000","info":{"native_token":{"denom":"uusd"}},"memo":"hi"}`,
	} {
		var x Asset
		if err := json.Unmarshal([]byte(bad), &x); err == nil {
			t.Errorf("accepted %s, want error", bad)
		}
	}
}
