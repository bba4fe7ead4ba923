package client

import "strconv"

// ContrastColor подбирает читаемый цвет текста ("black"/"white") для
// фонового hex-цвета по YIQ-яркости.
func ContrastColor(hexColor string) string {
	if hexColor == "" {
		return "white"
	}
	hex := hexColor
	if hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return "white"
	}
	r, err1 := strconv.ParseInt(hex[0:2], 16, 32)
	g, err2 := strconv.ParseInt(hex[2:4], 16, 32)
	b, err3 := strconv.ParseInt(hex[4:6], 16, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return "white"
	}
	yiq := (r*299 + g*587 + b*114) / 1000
	if yiq >= 180 {
		return "black"
	}
	return "white"
}

var userPalette = []string{
	"#dc2626", // red
	"#2563eb", // blue
	"#16a34a", // green
	"#9333ea", // purple
	"#ea580c", // orange
	"#db2777", // pink
	"#4f46e5", // indigo
	"#0d9488", // teal
	"#ca8a04", // yellow
	"#0891b2", // cyan
}

// UserColor — устойчивый цвет аватара по первому символу имени.
func UserColor(username string) string {
	if username == "" {
		return userPalette[0]
	}
	return userPalette[int(username[0])%len(userPalette)]
}
