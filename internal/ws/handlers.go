package ws

import "context"

func (s *WsServer) registerHandlers() {
	// 🔹 create --------------------------------------------------------------
	Register(s.router, TypeCreate,
		func(_ context.Context, cc *ConnContext, req CreateRequest, _ Message) error {
			_, err := s.hub.create(cc.conn, req.RoomID)
			return err
		},
	)

	// 🔹 join ----------------------------------------------------------------
	Register(s.router, TypeJoin,
		func(_ context.Context, cc *ConnContext, req JoinRequest, _ Message) error {
			_, err := s.hub.join(cc.conn, req.RoomID.ID)
			return err
		},
	)

	// 🔹 leave ---------------------------------------------------------------
	Register(s.router, TypeLeave,
		func(_ context.Context, cc *ConnContext, _ Empty, _ Message) error {
			if !s.hub.leave(cc.conn) {
				return ErrNoPeer
			}
			return nil
		},
	)

	// 🔹 offer / answer / ice ------------------------------------------------
	for _, t := range []string{TypeOffer, TypeAnswer, TypeIce} {
		Register(s.router, t,
			func(_ context.Context, cc *ConnContext, req SignalRequest, msg Message) error {
				return s.hub.relay(cc.conn, t, msg, req.To)
			},
		)
	}

	// 🔹 ping ----------------------------------------------------------------
	Register(s.router, TypePing,
		func(_ context.Context, cc *ConnContext, _ Empty, _ Message) error {
			cc.conn.send(encode(typeOnly{Type: TypePong}))
			return nil
		},
	)
}
