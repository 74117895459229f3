package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Enrollment API",
        "description": "Enrollment workflow for irregular students: eligibility validation, selection building and transactional finalization",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Student authentication"},
        {"name": "Subjects", "description": "Catalog browsing"},
        {"name": "Selection", "description": "In-progress subject selection"},
        {"name": "Enrollment", "description": "Finalization, reset and views"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a student",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List subjects available to the authenticated student",
                "responses": {
                    "200": {"description": "Subject offerings with sections"}
                }
            }
        },
        "/subjects/{code}": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Subject detail with prerequisites, corequisites and sections",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Subject detail"},
                    "404": {"description": "Subject not found"}
                }
            }
        },
        "/selection": {
            "get": {
                "tags": ["Selection"],
                "summary": "Current in-progress selection",
                "responses": {
                    "200": {"description": "Selection items and unit total"}
                }
            },
            "delete": {
                "tags": ["Selection"],
                "summary": "Empty the selection",
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/selection/validate": {
            "post": {
                "tags": ["Selection"],
                "summary": "Validate a candidate without mutating the selection",
                "responses": {
                    "200": {"description": "Verdict with optional corequisite suggestions"}
                }
            }
        },
        "/selection/items": {
            "post": {
                "tags": ["Selection"],
                "summary": "Validate and add a candidate to the selection",
                "responses": {
                    "200": {"description": "Updated selection"},
                    "422": {"description": "Candidate rejected"}
                }
            },
            "delete": {
                "tags": ["Selection"],
                "summary": "Remove one item from the selection",
                "responses": {
                    "200": {"description": "Updated selection"}
                }
            }
        },
        "/enrollment": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Committed enrollment for the current semester",
                "responses": {
                    "200": {"description": "Enrollment with lines"},
                    "404": {"description": "No enrollment"}
                }
            }
        },
        "/enrollment/finalize": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Commit the in-progress selection as an enrollment",
                "responses": {
                    "201": {"description": "Enrollment committed"},
                    "409": {"description": "Duplicate enrollment"},
                    "412": {"description": "Below minimum units"},
                    "422": {"description": "Empty selection"}
                }
            }
        },
        "/enrollment/reset": {
            "post": {
                "tags": ["Enrollment"],
                "summary": "Reverse a committed enrollment (administrative)",
                "responses": {
                    "200": {"description": "Enrollment reset"},
                    "403": {"description": "Invalid reset secret"}
                }
            }
        },
        "/enrollment/slip": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Registration slip as PDF",
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/enrollment/export": {
            "get": {
                "tags": ["Enrollment"],
                "summary": "Enrollment lines as CSV",
                "responses": {
                    "200": {"description": "CSV document"}
                }
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
