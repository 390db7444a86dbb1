package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrFactNotFound       = fmt.Errorf("no fact recorded under this sequence id")
	ErrUnexpectedFactType = fmt.Errorf("logged fact has an unexpected type")
	ErrRoomNotFound       = fmt.Errorf("room has no authorization record")
	ErrTransportClosed    = fmt.Errorf("transport is closed")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
