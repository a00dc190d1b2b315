package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/drakos74/planet-vision/internal/export"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func main() {

	root := flag.String("root", "file-storage", "storage root of the model exports")
	name := flag.String("model", "amazon", "model name to inspect")
	version := flag.Int("version", 0, "version to inspect, 0 for the latest")
	flag.Parse()

	registry := export.NewRegistry(*root)

	versions, err := registry.Versions(*name)
	if err != nil {
		log.Fatal().Err(err).Str("model", *name).Msg("no exports")
	}

	v := *version
	if v == 0 {
		v = versions[len(versions)-1]
	}

	signature, err := registry.Signature(*name, v)
	if err != nil {
		log.Fatal().Err(err).Int("version", v).Msg("could not load signature")
	}

	fmt.Printf("model: %s\n", *name)
	fmt.Printf("versions: %v\n", versions)
	fmt.Printf("version: %d\n", v)
	fmt.Printf("method: %s\n", signature.Method)
	fmt.Println("inputs:")
	for _, input := range signature.Inputs {
		fmt.Printf("  %s\n", describe(input))
	}
	fmt.Println("outputs:")
	for _, output := range signature.Outputs {
		fmt.Printf("  %s\n", describe(output))
	}
}

func describe(info export.TensorInfo) string {
	shape := make([]string, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = fmt.Sprintf("%d", dim)
	}
	s := fmt.Sprintf("%s: %s[%s]", info.Name, info.DType, strings.Join(shape, ","))
	if info.Activation != "" {
		s = fmt.Sprintf("%s (%s)", s, info.Activation)
	}
	return s
}
