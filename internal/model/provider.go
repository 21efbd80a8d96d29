package model

type Provider string

const (
	ProviderAsaas  Provider = "asaas"
	ProviderStripe Provider = "stripe"
)
