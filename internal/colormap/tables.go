package colormap

import "github.com/lucasb-eyer/go-colorful"

// Evenly spaced control points sampled from the published palettes.
var tables = map[Colormap][]colorful.Color{
	Parula: mustHex(
		"#352a87", "#0363e1", "#1485d4", "#06a7c6", "#38b99e",
		"#92bf73", "#d9ba56", "#fcce2e", "#f9fb0e",
	),
	Magma: mustHex(
		"#000004", "#1c1044", "#4f127b", "#812581", "#b5367a",
		"#e55964", "#fb8761", "#fec287", "#fcfdbf",
	),
	Inferno: mustHex(
		"#000004", "#1f0c48", "#550f6d", "#88226a", "#ba3655",
		"#e35933", "#f98e09", "#f9cb35", "#fcffa4",
	),
	Plasma: mustHex(
		"#0d0887", "#4c02a1", "#7e03a8", "#a92395", "#cc4778",
		"#e56b5d", "#f89441", "#fdc328", "#f0f921",
	),
	Viridis: mustHex(
		"#440154", "#472c7a", "#3b518b", "#2c718e", "#21908d",
		"#27ad81", "#5cc863", "#aadc32", "#fde725",
	),
	Cividis: mustHex(
		"#00224e", "#123570", "#3b496c", "#575d6d", "#707173",
		"#8a8779", "#a69d75", "#c4b56c", "#fee838",
	),
	// GitHub contribution graph levels.
	Github: mustHex(
		"#eeeeee", "#c6e48b", "#7bc96f", "#239a3b", "#196127",
	),
}

func mustHex(hexes ...string) []colorful.Color {
	colors := make([]colorful.Color, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		colors = append(colors, c)
	}
	return colors
}
