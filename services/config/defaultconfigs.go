package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "radio": {
      "name": "lora0",
      "bandwidth": "125",
      "spreading_factor": 7,
      "coding_rate": "4/5",
      "frequency": 915000000,
      "sync_word": 18,
      "implicit_header": false
  },
  "heartbeat": {
      "interval": 2
  }
}`

const cfgSim = `{
  "radio": {
      "name": "lora0",
      "bandwidth": "500",
      "spreading_factor": 9,
      "coding_rate": "4/6",
      "frequency": 868100000,
      "sync_word": 52,
      "implicit_header": false
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),
}
