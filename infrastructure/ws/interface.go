package ws

type IHub interface {
	Run()
	RegisterSession(s *Session)
	UnregisterSession(s *Session)
	JoinRoom(s *Session, room string)
	BroadcastRoom(room string, message []byte)
	RoomCount(room string) int
	SessionCount() int
	SetOnSessionUnregister(callback func(s *Session) error)
}
