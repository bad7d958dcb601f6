package types

// AccountStandard identifies how a fee account holds an asset
type AccountStandard string

const (
	StandardNative   AccountStandard = "native"
	StandardClassic  AccountStandard = "standard"
	StandardExtended AccountStandard = "extended"
)

// FeeAccountStatus records how a fee account was obtained
type FeeAccountStatus string

const (
	FeeAccountExists  FeeAccountStatus = "exists"
	FeeAccountCreated FeeAccountStatus = "created"
	FeeAccountMissing FeeAccountStatus = "missing"
)

// FeeAccountRecord is the account that receives the platform fee for one asset
type FeeAccountRecord struct {
	Owner    string           `json:"owner"`
	Mint     string           `json:"mint"`
	Address  string           `json:"address,omitempty"`
	Standard AccountStandard  `json:"standard,omitempty"`
	Status   FeeAccountStatus `json:"status"`
}

// Usable reports whether the record names an account that can receive fees
func (r *FeeAccountRecord) Usable() bool {
	return r != nil && r.Address != "" && r.Status != FeeAccountMissing
}
