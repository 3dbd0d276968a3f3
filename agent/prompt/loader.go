package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Router string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Router: strings.TrimSpace(routerRaw),
	}
}
