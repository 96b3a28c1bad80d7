package openapi

func envelopeSchema(dataSchema map[string]any) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{"type": "integer"},
			"err":  map[string]any{"type": "string"},
			"data": dataSchema,
		},
		"required": []string{"code"},
	}
}

func pathParam(name string) map[string]any {
	return map[string]any{
		"name":     name,
		"in":       "path",
		"required": true,
		"schema":   map[string]any{"type": "integer"},
	}
}

func ingestOp(summary string, operationID string, payloadRef string) map[string]any {
	return map[string]any{
		"post": map[string]any{
			"tags":        []string{"ingest"},
			"summary":     summary,
			"operationId": operationID,
			"requestBody": map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"oneOf": []any{
								map[string]any{"$ref": payloadRef},
								map[string]any{
									"type":  "array",
									"items": map[string]any{"$ref": payloadRef},
								},
							},
						},
					},
				},
			},
			"responses": map[string]any{
				"202": map[string]any{"description": "Accepted"},
				"400": map[string]any{"description": "Invalid payload"},
				"503": map[string]any{"description": "Queue unavailable"},
			},
		},
	}
}

// Spec returns a minimal OpenAPI 3 spec for the auditlog HTTP API.
// It is intentionally hand-maintained to avoid codegen tooling.
func Spec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "auditlog API",
			"version": "0.1.0",
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"tags":        []string{"system"},
					"summary":     "Health check",
					"responses":   map[string]any{"200": map[string]any{"description": "OK"}},
					"operationId": "healthz",
				},
			},
			"/api/status": map[string]any{
				"get": map[string]any{
					"tags":        []string{"system"},
					"summary":     "Get system status",
					"operationId": "getSystemStatus",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Status",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/SystemStatus"}),
								},
							},
						},
					},
				},
			},
			"/api/stats": map[string]any{
				"get": map[string]any{
					"tags":        []string{"system"},
					"summary":     "Get in-process counters",
					"operationId": "getStats",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Counters",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"type": "object", "additionalProperties": true}),
								},
							},
						},
					},
				},
			},
			"/api/auth/bootstrap": map[string]any{
				"post": map[string]any{
					"tags":        []string{"auth"},
					"summary":     "Bootstrap first admin account",
					"operationId": "bootstrap",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/CredentialsRequest"},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Bootstrapped",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/TokenResponse"}),
								},
							},
						},
						"409": map[string]any{"description": "Already initialized"},
						"503": map[string]any{"description": "AUTH_SECRET not configured or database unavailable"},
					},
				},
			},
			"/api/auth/login": map[string]any{
				"post": map[string]any{
					"tags":        []string{"auth"},
					"summary":     "Login",
					"operationId": "login",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/CredentialsRequest"},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Logged in",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/TokenResponse"}),
								},
							},
						},
						"401": map[string]any{"description": "Invalid credentials"},
					},
				},
			},
			"/api/me": map[string]any{
				"get": map[string]any{
					"tags":        []string{"auth"},
					"summary":     "Get current admin",
					"operationId": "getMe",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Admin",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{
										"type": "object",
										"properties": map[string]any{
											"admin": map[string]any{"$ref": "#/components/schemas/Admin"},
										},
										"required": []string{"admin"},
									}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/alerts": map[string]any{
				"get": map[string]any{
					"tags":        []string{"alerts"},
					"summary":     "List alert definitions",
					"operationId": "listAlerts",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Alerts",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{
										"type":  "array",
										"items": map[string]any{"$ref": "#/components/schemas/Alert"},
									}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/occurrences/recent": map[string]any{
				"get": map[string]any{
					"tags":        []string{"occurrences"},
					"summary":     "List recent occurrences",
					"operationId": "recentOccurrences",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"parameters": []map[string]any{
						{
							"name":     "limit",
							"in":       "query",
							"required": false,
							"schema":   map[string]any{"type": "integer", "default": 50, "maximum": 500},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Occurrences",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{
										"type":  "array",
										"items": map[string]any{"$ref": "#/components/schemas/Occurrence"},
									}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/occurrences/{occurrenceId}": map[string]any{
				"get": map[string]any{
					"tags":        []string{"occurrences"},
					"summary":     "Get occurrence",
					"operationId": "getOccurrence",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"parameters":  []map[string]any{pathParam("occurrenceId")},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Occurrence",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/Occurrence"}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
						"404": map[string]any{"description": "Not found"},
					},
				},
			},
			"/api/settings/{name}": map[string]any{
				"get": map[string]any{
					"tags":        []string{"settings"},
					"summary":     "Get setting",
					"operationId": "getSetting",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"parameters": []map[string]any{
						{
							"name":     "name",
							"in":       "path",
							"required": true,
							"schema":   map[string]any{"type": "string"},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Setting",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/Setting"}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/settings": map[string]any{
				"post": map[string]any{
					"tags":        []string{"settings"},
					"summary":     "Set setting",
					"operationId": "setSetting",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/Setting"},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Setting",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": envelopeSchema(map[string]any{"$ref": "#/components/schemas/Setting"}),
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/api/summary/send-now": map[string]any{
				"post": map[string]any{
					"tags":        []string{"summary"},
					"summary":     "Compile and queue an activity report for today",
					"operationId": "sendSummaryNow",
					"security":    []map[string]any{{"bearerAuth": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Result",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"success": map[string]any{"type": "boolean"},
											"data":    map[string]any{"type": "string"},
										},
										"required": []string{"success", "data"},
									},
								},
							},
						},
						"401": map[string]any{"description": "Unauthorized"},
					},
				},
			},
			"/ingest/sql":     ingestOp("Ingest SQL statements (single or batch)", "ingestSQL", "#/components/schemas/SQLPayload"),
			"/ingest/404":     ingestOp("Ingest 404 request contexts (single or batch)", "ingestNotFound", "#/components/schemas/RequestPayload"),
			"/ingest/trigger": ingestOp("Ingest direct alert triggers (single or batch)", "ingestTrigger", "#/components/schemas/TriggerPayload"),
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
			"schemas": map[string]any{
				"SystemStatus": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status": map[string]any{
							"type": "string",
							"enum": []string{"uninitialized", "running", "maintenance", "exception"},
						},
						"initialized":  map[string]any{"type": "boolean"},
						"auth_enabled": map[string]any{"type": "boolean"},
						"message":      map[string]any{"type": "string"},
					},
					"required": []string{"status", "initialized", "auth_enabled"},
				},
				"Admin": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "integer", "format": "int64"},
						"email": map[string]any{"type": "string"},
					},
					"required": []string{"id", "email"},
				},
				"CredentialsRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"email":    map[string]any{"type": "string"},
						"password": map[string]any{"type": "string"},
					},
					"required": []string{"email", "password"},
				},
				"TokenResponse": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"token": map[string]any{"type": "string"},
						"admin": map[string]any{"$ref": "#/components/schemas/Admin"},
					},
					"required": []string{"token", "admin"},
				},
				"Alert": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":          map[string]any{"type": "integer"},
						"severity":    map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"object_tag":  map[string]any{"type": "string"},
						"action_tag":  map[string]any{"type": "string"},
					},
					"required": []string{"id", "severity", "description"},
				},
				"Occurrence": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":          map[string]any{"type": "integer", "format": "int64"},
						"alert_id":    map[string]any{"type": "integer"},
						"severity":    map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"site_id":     map[string]any{"type": "integer"},
						"created_on":  map[string]any{"type": "string", "format": "date-time"},
						"client_ip":   map[string]any{"type": "string"},
						"username":    map[string]any{"type": "string"},
						"meta": map[string]any{
							"type":                 "object",
							"additionalProperties": true,
						},
					},
					"required": []string{"id", "alert_id", "severity", "created_on"},
				},
				"Setting": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"value": map[string]any{"type": "string"},
					},
					"required": []string{"name", "value"},
				},
				"SQLPayload": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"statement":   map[string]any{"type": "string"},
						"script_path": map[string]any{"type": "string"},
						"timestamp":   map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []string{"statement"},
				},
				"RequestPayload": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url":       map[string]any{"type": "string"},
						"username":  map[string]any{"type": "string"},
						"user_id":   map[string]any{"type": "integer", "format": "int64"},
						"referrer":  map[string]any{"type": "string"},
						"client_ip": map[string]any{"type": "string"},
						"timestamp": map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []string{"url"},
				},
				"TriggerPayload": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"alert_id": map[string]any{"type": "integer"},
						"meta": map[string]any{
							"type":                 "object",
							"additionalProperties": true,
						},
						"suppressed": map[string]any{"type": "boolean"},
						"timestamp":  map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []string{"alert_id"},
				},
			},
		},
	}
}
