package orbit

// parentChainRPCURLs are public RPC endpoints of supported parent chains.
var parentChainRPCURLs = map[uint64]string{
	1:        "https://ethereum-rpc.publicnode.com",
	11155111: "https://ethereum-sepolia-rpc.publicnode.com",
	42161:    "https://arb1.arbitrum.io/rpc",
	42170:    "https://nova.arbitrum.io/rpc",
	421614:   "https://sepolia-rollup.arbitrum.io/rpc",
}

// ParentChainRPCURL returns the public RPC URL of a known parent chain.
func ParentChainRPCURL(chainID uint64) (string, bool) {
	url, ok := parentChainRPCURLs[chainID]
	return url, ok
}
