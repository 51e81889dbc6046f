package emit

// defaultRules is the fixed rule set in artifact order.
func defaultRules() []rule {
	return []rule{
		{"manifest", emitManifest},
		{"tsconfig", emitTSConfig},
		{"env", emitEnv},
		{"container", emitContainer},
		{"entry", emitEntry},
		{"types", emitTypes},
		{"routes", emitRoutes},
		{"custom", emitCustom},
		{"hooks", emitHooks},
		{"auth", emitAuth},
		{"middleware", emitMiddleware},
		{"query-builder", emitQueryBuilder},
		{"frontend", emitFrontend},
		{"storage", emitStorage},
		{"openapi", emitOpenAPI},
		{"docs", emitDocs},
		{"ci", emitCI},
		{"testing", emitTesting},
		{"features", emitFeatures},
	}
}
