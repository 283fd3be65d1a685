package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HCM Campaign API",
        "description": "Campaign coordination core: assessment and engagement campaign lifecycles, assignments, conflicts and the unified calendar.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Campaigns", "description": "Campaign lifecycle for both families"},
        {"name": "Assignments", "description": "Per-employee campaign slots"},
        {"name": "Calendar", "description": "Unified cross-family calendar"},
        {"name": "AI", "description": "Question generation passthrough"}
    ],
    "paths": {
        "/campaigns/{family}": {
            "get": {
                "tags": ["Campaigns"],
                "summary": "List campaigns of one family",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string", "enum": ["assessments", "engagements"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "template_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Campaigns"],
                "summary": "Create campaign with initial assignments",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCampaignRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict report under details", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/campaigns/{family}/{id}": {
            "get": {
                "tags": ["Campaigns"],
                "summary": "Get campaign with stats",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Campaigns"],
                "summary": "Delete campaign without responses or started assignments",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "HAS_RESPONSES or HAS_STARTED_ASSIGNMENTS"}
                }
            }
        },
        "/campaigns/{family}/{id}/status": {
            "patch": {
                "tags": ["Campaigns"],
                "summary": "Move campaign through its state machine",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "ILLEGAL_TRANSITION"}
                }
            }
        },
        "/campaigns/{family}/{id}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List campaign assignments",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assignments"],
                "summary": "Bulk-add employees",
                "parameters": [
                    {"name": "family", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddAssignmentsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Campaigns of both families in a window",
                "parameters": [
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"},
                    {"name": "include_completed", "in": "query", "type": "boolean"},
                    {"name": "employee_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/stats": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Aggregate campaign counts for the current period",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["week", "month", "quarter", "year"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ai/providers": {
            "get": {
                "tags": ["AI"],
                "summary": "List question generation providers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ai/extract-document": {
            "post": {
                "tags": ["AI"],
                "summary": "Extract text from an uploaded questionnaire document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateCampaignRequest": {
            "type": "object",
            "properties": {
                "template_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "employee_ids": {"type": "array", "items": {"type": "integer"}},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"},
                "frequency": {"type": "string"},
                "mandatory": {"type": "boolean"},
                "allow_retakes": {"type": "boolean"},
                "max_attempts": {"type": "integer"},
                "anonymous_responses": {"type": "boolean"},
                "reminder_settings": {"type": "object"},
                "check_conflicts": {"type": "boolean"}
            },
            "required": ["template_id", "name", "employee_ids", "start_date", "end_date", "frequency"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            },
            "required": ["status"]
        },
        "AddAssignmentsRequest": {
            "type": "object",
            "properties": {
                "employee_ids": {"type": "array", "items": {"type": "integer"}}
            },
            "required": ["employee_ids"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "details": {"type": "object"},
                "warnings": {"type": "array", "items": {"type": "object"}},
                "pagination": {"$ref": "#/definitions/Pagination"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
