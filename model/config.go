package model

import (
	"encoding/json"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Config
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConfig)
}

// A Config describes a model's architecture.
type Config struct {
	// InputDim is the embedding dimensionality of both the
	// input and output vocabularies.
	InputDim int

	// HiddenDim is the per-direction recurrent state size.
	// Encoder outputs are 2*HiddenDim wide and attended
	// output vectors are 3*HiddenDim wide.
	HiddenDim int

	// Layers is the LSTM layer count for the encoder
	// directions and the decoder.
	Layers int
}

// DeserializeConfig deserializes a Config.
func DeserializeConfig(d []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(d, &c); err != nil {
		return nil, essentials.AddCtx("deserialize Config", err)
	}
	return &c, nil
}

// SerializerType returns the unique ID used to serialize
// a Config with the serializer package.
func (c *Config) SerializerType() string {
	return "github.com/jkastner/seqtrans/model.Config"
}

// Serialize serializes the Config.
func (c *Config) Serialize() ([]byte, error) {
	return json.Marshal(c)
}
