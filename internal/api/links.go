package api

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parking/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/map>; rel="map"`,
		`</api/v1/zones>; rel="zones"`,
		`</api/v1/datasets>; rel="datasets"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/map>; rel="map"`,
	},
	"/api/v1/map": {
		`</api/v1/map/interact>; rel="interact"`,
		`</api/v1/map/reload>; rel="reload"`,
		`</api/v1/zones>; rel="zones"`,
		`</viewer>; rel="alternate"; type="text/html"`,
	},
	"/api/v1/zones": {
		`</api/v1/palette>; rel="palette"`,
		`</api/v1/map>; rel="map"`,
	},
	"/api/v1/palette": {
		`</api/v1/zones>; rel="zones"`,
	},
	"/api/v1/datasets": {
		`</api/v1/map>; rel="map"`,
		`</api/v1/zones/stats>; rel="stats"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}
		if a, ok := v.(humastar.Actor); ok {
			for _, act := range a.Actions() {
				ctx.AppendHeader("Link", act.LinkHeader())
			}
		}

		ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))

		return v, nil
	}
}
