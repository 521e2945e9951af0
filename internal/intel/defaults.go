package intel

// defaultData is the built-in intelligence snapshot. Addresses come from
// public sanctions lists and incident reports; the token sets cover the
// majors plus the meme tokens most often involved in pump-and-dump
// reports. Operators with a live feed should load their own file instead.
var defaultData = file{
	BlacklistAddresses: []string{
		// Tornado Cash router and proxy (OFAC SDN)
		"0x722122df12d4e14e13ac3b6895a86e84145b6967",
		"0xd90e2f925da726b50c4ed8d0fb90ad053324f31b",
		// Lazarus Group (Ronin bridge exploit)
		"0x098b716b8aaf21512996dc57eb0615e2383e2f96",
		// PlusToken exit scam aggregation wallet
		"0xf4a2eff88a408ff4c4550148151c33c93442619e",
	},
	BlacklistContracts: []string{
		// Confirmed honeypot deployments
		"0x8a6d9c3b57c3d835e37b8b4a0c1e7b9d2f4a5c61",
		"0x1dc4c1cefef38a777b15aa20260a54e584b16c48",
	},
	RiskyTokens: []string{
		"SHIB", "PEPE", "FLOKI", "ELON", "SQUID", "LUNA2",
	},
	MajorTokens: map[string][]string{
		"USDT": {"0xdac17f958d2ee523a2206206994597c13d831ec7"},
		"USDC": {"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
		"WETH": {"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"},
		"WBTC": {"0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"},
		"DAI":  {"0x6b175474e89094c44da98b954eedeac495271d0f"},
	},
	Clusters: []Cluster{
		{
			Name:     "cluster_phishing",
			Label:    "Phishing Cluster",
			BaseRisk: 0.95,
			Addresses: []string{
				"0x0cbcdbb381f31a9e8f2b8bbffee7e1fc01e4d39d",
				"0x04f79b8bbf6bfd54de42698e37f428a9a3504bf4",
				"0x04b9ab3b0a09a85d95afd38c3b0ae6f0b74e0f7a",
			},
		},
		{
			Name:     "cluster_mixer",
			Label:    "Mixer Deposit Cluster",
			BaseRisk: 0.75,
			Addresses: []string{
				"0x12d66f87a04a9e220743712ce6d9bb1b5616b8fc",
				"0x1274fae1e82778bbcbbea87f1a55b3f13c6ee9b4",
			},
		},
		{
			Name:     "cluster_rugpull",
			Label:    "Rugpull Deployers",
			BaseRisk: 0.90,
			Addresses: []string{
				"0x3c3e1cbe1f1e0f0a4de3d34f0d7e9bebf0828d4f",
				"0x3cd751e6b0078be393132286c442345e5dc49699",
				"0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be",
			},
		},
	},
}
