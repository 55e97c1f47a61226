package ecs

// UpdateFrame is passed to every system executed during one scheduler pass.
type UpdateFrame struct {
	DeltaTime float64
	Stage     Stage
	Commands  *Commands
	Storage   *Storage
}

func newUpdateFrame(dt float64, storage *Storage) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  NewCommands(),
		Storage:   storage,
	}
}
