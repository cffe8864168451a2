package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/hotvault/hotvault/custody"
	"github.com/hotvault/hotvault/handshake"
	"github.com/hotvault/hotvault/platform"
	"github.com/hotvault/hotvault/zero"
)

// Server wires the custody engine to a Fiber app. All engine failures map
// to a bare HTTP 500 with an empty body except ErrBadName, which maps to
// 400, so no response ever leaks which keys exist.
type Server struct {
	Engine  *custody.Engine
	Log     *slog.Logger
	Backend platform.Backend
}

// Mount registers every route on app.
func (s *Server) Mount(app *fiber.App) {
	app.Get("/health", s.health)
	app.Get("/evm_generate/:name", s.evmGenerate)
	app.Get("/evm_address/:name", s.evmAddress)
	app.Get("/solana_generate/:name", s.solanaGenerate)
	app.Get("/solana_address/:name", s.solanaAddress)
	app.Get("/read/:name", s.read)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (s *Server) fail(c *fiber.Ctx, name, op string, err error) error {
	if errors.Is(err, custody.ErrBadName) {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	s.Log.Error("custody operation failed", "op", op, "name", name, "err", err)
	// platform.AssertOwnerGetEncryptionKey already calls CommunicateErr for
	// these two, inside the engine, at the moment they occur; every other
	// failure reaches the operator only here.
	if !errors.Is(err, custody.ErrNotDeviceOwner) && !errors.Is(err, custody.ErrFailedToGetEncryptionKey) {
		s.Backend.CommunicateErr(fmt.Sprintf("%s %q: %v", op, name, err))
	}
	return c.SendStatus(fiber.StatusInternalServerError)
}

func (s *Server) evmGenerate(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.Engine.GenerateEVM(c.Context(), name); err != nil {
		return s.fail(c, name, "evm_generate", err)
	}
	return c.SendString("success")
}

func (s *Server) evmAddress(c *fiber.Ctx) error {
	name := c.Params("name")
	addr, err := s.Engine.AddressEVM(c.Context(), name)
	if err != nil {
		return s.fail(c, name, "evm_address", err)
	}
	return c.SendString(addr)
}

func (s *Server) solanaGenerate(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := s.Engine.GenerateSolana(c.Context(), name); err != nil {
		return s.fail(c, name, "solana_generate", err)
	}
	return c.SendString("success")
}

func (s *Server) solanaAddress(c *fiber.Ctx) error {
	name := c.Params("name")
	addr, err := s.Engine.AddressSolana(c.Context(), name)
	if err != nil {
		return s.fail(c, name, "solana_address", err)
	}
	return c.SendString(addr)
}

// read implements the ephemeral-handshake disclosure: parse the client's
// ClientReq body, decrypt the named key, seal it under the client's
// ephemeral pubkey, and zeroize the plaintext before returning rather
// than waiting on the garbage collector.
func (s *Server) read(c *fiber.Ctx) error {
	name := c.Params("name")

	var req handshake.ClientReq
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return s.fail(c, name, "read", custody.ErrBadBody)
	}

	plaintext, err := s.Engine.Read(c.Context(), name)
	if err != nil {
		return s.fail(c, name, "read", err)
	}
	defer zero.Bytes(plaintext)

	res, err := handshake.Seal(req.Pubk, plaintext)
	if err != nil {
		return s.fail(c, name, "read", custody.ErrHandshake)
	}

	return c.JSON(res)
}
