package studio

import "errors"

var (
	ErrMissingCredential = errors.New("image service credential is missing")
	ErrIncompleteColors  = errors.New("select all colors first")
	ErrEmptyKeyword      = errors.New("search keyword is empty")
	ErrEmptyMotif        = errors.New("motif reference is empty")
	ErrNoSuchMotif       = errors.New("no such motif in the last search")
	ErrBusy              = errors.New("request already in progress")
	ErrMotifCount        = errors.New("motif count out of range")
)
