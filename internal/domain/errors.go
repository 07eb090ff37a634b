package domain

import (
	"fmt"

	appErrors "appupdates/internal/errors"
)

// ReleaseNotFound reports a missing release by version code.
func ReleaseNotFound(code int) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("release %d not found", code), nil)
}

// ChannelEmpty reports that no release is promoted on a channel.
func ChannelEmpty(ch Channel) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("no %s release", ch), nil)
}

// ReleaseExists reports an upload for a version code that is already stored.
func ReleaseExists(code int) error {
	return appErrors.New(appErrors.CodeAlreadyExists, fmt.Sprintf("version %d already exists", code), nil)
}

func invalidChannelError(name string) error {
	return appErrors.New(appErrors.CodeInvalidInput, fmt.Sprintf("invalid channel: %s", name), nil)
}

func invalidVersionCodeError(code int) error {
	return appErrors.New(appErrors.CodeInvalidInput, fmt.Sprintf("invalid version code: %d", code), nil)
}
