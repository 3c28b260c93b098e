package model

// MQTTInfo describes how integrations reach the application MQTT broker.
type MQTTInfo struct {
	PublicAddress    string `json:"publicAddress" yaml:"public_address"`
	PublicTLSAddress string `json:"publicTlsAddress" yaml:"public_tls_address"`
	Username         string `json:"username" yaml:"username"`
}

// TrafficPoint is one bar of the dashboard gateway traffic chart.
type TrafficPoint struct {
	Gateway  string `json:"gateway"`
	Uplink   int    `json:"uplink"`
	Downlink int    `json:"downlink"`
}
