// Package docs swagger 描述，由 swag init 按处理器注释生成后手工精简
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "全站帖子",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/group/{slug}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "分组帖子",
                "parameters": [
                    {"type": "string", "description": "分组 slug", "name": "slug", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/profile/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "作者主页",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/profile/{username}/follow": {
            "get": {
                "tags": ["关系链"],
                "summary": "关注作者",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "重定向到作者主页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/profile/{username}/unfollow": {
            "get": {
                "tags": ["关系链"],
                "summary": "取消关注",
                "parameters": [
                    {"type": "string", "description": "用户名", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "重定向到作者主页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/follow": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "关注 feed",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "未登录重定向到登录页"}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "帖子详情",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/create": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "新建帖子表单",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "未登录重定向到登录页"}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "新建帖子",
                "parameters": [
                    {"type": "string", "description": "正文", "name": "text", "in": "formData", "required": true},
                    {"type": "integer", "description": "分组ID", "name": "group", "in": "formData"},
                    {"type": "file", "description": "图片", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "表单错误", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "重定向到作者主页"}
                }
            }
        },
        "/posts/{id}/edit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "编辑帖子表单",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "非作者重定向到详情页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "编辑帖子",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "正文", "name": "text", "in": "formData", "required": true},
                    {"type": "integer", "description": "分组ID", "name": "group", "in": "formData"},
                    {"type": "file", "description": "图片", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "表单错误", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "重定向到详情页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/posts/{id}/delete": {
            "post": {
                "tags": ["帖子"],
                "summary": "删除帖子",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "重定向到作者主页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/posts/{id}/comment": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "发表评论",
                "parameters": [
                    {"type": "integer", "description": "帖子ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "评论内容", "name": "text", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "表单错误", "schema": {"$ref": "#/definitions/response.Response"}},
                    "302": {"description": "重定向到详情页"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["系统"],
                "summary": "健康检查",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "postfeed API",
	Description:      "帖子、分组、评论与关注 feed",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
