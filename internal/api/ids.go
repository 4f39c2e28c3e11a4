package api

import "github.com/google/uuid"

func newProductID() string {
	return uuid.NewString()
}
