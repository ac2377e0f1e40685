package domain

import (
	"errors"
)

var (
	MessageSuccessGetTags      = "success get tags"
	MessageSuccessGetTagDetail = "success get tag detail"

	MessageSuccessCreateTag = "tag created successfully"

	MessageFailedGetTags      = "failed to get tags"
	MessageFailedGetTagDetail = "failed to get tag detail"
	MessageFailedCreateTag    = "failed to create tag"

	ErrTagNotFound      = errors.New("tag not found")
	ErrTagAlreadyExists = errors.New("tag already exists")
)

type (
	TagResponse struct {
		ID    uint   `json:"id"`
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		Color string `json:"color"`
	}

	TagCreateRequest struct {
		Name  string `json:"name" validate:"required,max=200"`
		Slug  string `json:"slug" validate:"required,max=50,slug"`
		Color string `json:"color" validate:"required,hexcolor"`
	}
)
