package gpt

const (
	colourBlue     = "#527acc"
	colourGreen    = "#26a65b"
	colourOrange   = "#f39c12"
	colourRed      = "#cc527a"
	colourPurple   = "#9b59b6"
	colourWhite    = "#e8e8e8"
	colourGray     = "#777777"
	colourPaleBlue = "#8cb8ff"
)
