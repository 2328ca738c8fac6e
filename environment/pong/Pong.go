// Package pong implements a two-player pong environment simulated with
// Box2D and rendered to raw RGB frames. The agent controls the left
// paddle and plays against a scripted opponent on the right.
package pong

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/pongppo/environment"
	"github.com/samuelfneumann/pongppo/timestep"
	"github.com/samuelfneumann/pongppo/utils/floatutils"
)

// Frame geometry in pixels
const (
	Width    int = 200
	Height   int = 200
	Channels int = 3
)

// Physics constants. Scale converts pixels to Box2D metres.
const (
	Scale float64 = 10.0
	FPS   float64 = 30.0

	PaddleW      float64 = 4.0
	PaddleH      float64 = 20.0
	PaddleOffset float64 = 10.0
	BallSize     float64 = 4.0

	// Speeds are given in pixels per step
	PaddleSpeed float64 = 3.0
	BallSpeed   float64 = 2.5

	// MaxBounceAngle is the largest angle the ball leaves a paddle at
	MaxBounceAngle float64 = math.Pi / 3

	velocityIterations int = 8
	positionIterations int = 3
)

// Actions available to the agent
const (
	Stay int = iota
	Up
	Down
	NumActions
)

// Palette of the rendered frames
var (
	Background = color.RGBA{R: 43, G: 48, B: 58, A: 255}
	Foreground = color.RGBA{R: 236, G: 236, B: 236, A: 255}
)

// Config configures a Pong environment
type Config struct {
	// PointsToWin is the score at which the episode ends
	PointsToWin int

	// OpponentSkill scales the opponent's paddle speed, in (0, 1]
	OpponentSkill float64

	Seed uint64
}

// DefaultConfig returns the default Pong configuration
func DefaultConfig() Config {
	return Config{
		PointsToWin:   21,
		OpponentSkill: 0.6,
	}
}

// Pong implements a pong game. Each step of the environment advances the
// simulation by one frame.
type Pong struct {
	ender         environment.Ender
	pointsToWin   int
	opponentSkill float64
	rng           *rand.Rand

	world    box2d.B2World
	walls    []*box2d.B2Body
	player   *box2d.B2Body
	opponent *box2d.B2Body
	ball     *box2d.B2Body

	playerScore   int
	opponentScore int
	lastStep      timestep.TimeStep
	canvas        *gg.Context
}

// New returns a new Pong environment. The ender may be nil, in which case
// episodes end only when one player reaches the winning score.
func New(c Config, ender environment.Ender) (*Pong, error) {
	if c.PointsToWin <= 0 {
		return nil, fmt.Errorf("new: points to win must be positive, got %v",
			c.PointsToWin)
	}
	if c.OpponentSkill <= 0 || c.OpponentSkill > 1 {
		return nil, fmt.Errorf("new: opponent skill must be in (0, 1], "+
			"got %v", c.OpponentSkill)
	}

	p := &Pong{
		ender:         ender,
		pointsToWin:   c.PointsToWin,
		opponentSkill: c.OpponentSkill,
		rng:           rand.New(rand.NewSource(c.Seed)),
		canvas:        gg.NewContext(Width, Height),
	}
	p.createWorld()

	return p, nil
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Pong) ObservationSpec() environment.Spec {
	spec, _ := environment.NewSpec([]int{Height, Width, Channels},
		environment.Observation, 0, 255, environment.Continuous)
	return spec
}

// ActionSpec returns the action specification of the environment
func (p *Pong) ActionSpec() environment.Spec {
	spec, _ := environment.NewSpec([]int{1}, environment.Action, 0,
		float64(NumActions-1), environment.Discrete)
	return spec
}

// Scores returns the scores of the agent and opponent
func (p *Pong) Scores() (player, opponent int) {
	return p.playerScore, p.opponentScore
}

// Reset resets the environment to a new episode and returns the first
// timestep
func (p *Pong) Reset() (timestep.TimeStep, error) {
	p.destroyWorld()
	p.createWorld()
	p.playerScore, p.opponentScore = 0, 0
	p.serve()

	p.lastStep = timestep.New(timestep.First, 0, 1, p.frame(), 0)
	return p.lastStep, nil
}

// Step takes one step in the environment with the given action
func (p *Pong) Step(action int) (timestep.TimeStep, bool, error) {
	if action < 0 || action >= NumActions {
		return timestep.TimeStep{}, true, fmt.Errorf("step: action %v "+
			"out of range [0, %v)", action, NumActions)
	}
	if p.lastStep.Last() {
		return timestep.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset")
	}

	p.movePlayer(action)
	p.moveOpponent()

	vxBefore := p.ball.GetLinearVelocity().X
	p.world.Step(1.0/FPS, velocityIterations, positionIterations)
	p.clampPaddles()
	p.deflect(vxBefore)

	reward := p.score()
	number := p.lastStep.Number + 1
	step := timestep.New(timestep.Mid, reward, 1, p.frame(), number)

	if p.playerScore >= p.pointsToWin || p.opponentScore >= p.pointsToWin {
		step.StepType = timestep.Last
		step.EndType = timestep.TerminalStateReached
		step.Discount = 0
	} else if p.ender != nil {
		p.ender.End(&step)
	}

	p.lastStep = step
	return step, step.Last(), nil
}

// Close releases the resources held by the environment
func (p *Pong) Close() error {
	p.destroyWorld()
	return nil
}

// Render returns the current frame as an image
func (p *Pong) Render() image.Image {
	p.draw()
	return p.canvas.Image()
}

// movePlayer sets the agent's paddle velocity
func (p *Pong) movePlayer(action int) {
	speed := toMetres(PaddleSpeed) * FPS
	switch action {
	case Up:
		p.player.SetLinearVelocity(box2d.MakeB2Vec2(0, speed))
	case Down:
		p.player.SetLinearVelocity(box2d.MakeB2Vec2(0, -speed))
	default:
		p.player.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	}
}

// moveOpponent tracks the ball with the opponent's paddle
func (p *Pong) moveOpponent() {
	speed := toMetres(PaddleSpeed) * FPS * p.opponentSkill
	dy := p.ball.GetPosition().Y - p.opponent.GetPosition().Y

	var vy float64
	if math.Abs(dy) > toMetres(PaddleH)/4 {
		vy = math.Copysign(speed, dy)
	}
	p.opponent.SetLinearVelocity(box2d.MakeB2Vec2(0, vy))
}

// clampPaddles keeps kinematic paddles inside the playing field since
// they do not collide with static walls
func (p *Pong) clampPaddles() {
	half := toMetres(PaddleH) / 2
	top := toMetres(float64(Height)) - half

	for _, paddle := range []*box2d.B2Body{p.player, p.opponent} {
		pos := paddle.GetPosition()
		if pos.Y < half || pos.Y > top {
			pos.Y = floatutils.Clip(pos.Y, half, top)
			paddle.SetTransform(pos, 0)
			paddle.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
		}
	}
}

// deflect changes the ball's direction after hitting a paddle based on
// where it hit the paddle, and keeps the ball at constant speed
func (p *Pong) deflect(vxBefore float64) {
	vel := p.ball.GetLinearVelocity()
	speed := toMetres(BallSpeed) * FPS

	if vxBefore != 0 && math.Signbit(vel.X) != math.Signbit(vxBefore) {
		paddle := p.player
		if vxBefore > 0 {
			paddle = p.opponent
		}
		offset := (p.ball.GetPosition().Y - paddle.GetPosition().Y) /
			(toMetres(PaddleH) / 2)
		offset = floatutils.Clip(offset, -1, 1)

		angle := offset * MaxBounceAngle
		vel.X = math.Copysign(speed*math.Cos(angle), vel.X)
		vel.Y = speed * math.Sin(angle)
	}

	norm := math.Hypot(vel.X, vel.Y)
	if norm == 0 {
		return
	}
	vel.X *= speed / norm
	vel.Y *= speed / norm

	// Avoid near-vertical trajectories that never reach a paddle
	minX := speed * math.Cos(MaxBounceAngle)
	if math.Abs(vel.X) < minX {
		vel.X = math.Copysign(minX, vel.X)
		vel.Y = math.Copysign(math.Sqrt(speed*speed-minX*minX), vel.Y)
	}
	p.ball.SetLinearVelocity(vel)
}

// score checks whether the ball left the field, updates the scores, and
// returns the agent's reward
func (p *Pong) score() float64 {
	x := p.ball.GetPosition().X
	var reward float64
	switch {
	case x < 0:
		p.opponentScore++
		reward = -1
	case x > toMetres(float64(Width)):
		p.playerScore++
		reward = 1
	default:
		return 0
	}

	p.serve()
	return reward
}

// serve places the ball in the centre of the field and launches it
// towards a random side
func (p *Pong) serve() {
	centre := box2d.MakeB2Vec2(toMetres(float64(Width))/2,
		toMetres(float64(Height))/2)
	p.ball.SetTransform(centre, 0)

	angle := (p.rng.Float64()*2 - 1) * math.Pi / 4
	speed := toMetres(BallSpeed) * FPS
	vx := speed * math.Cos(angle)
	if p.rng.Intn(2) == 0 {
		vx = -vx
	}
	p.ball.SetLinearVelocity(box2d.MakeB2Vec2(vx, speed*math.Sin(angle)))
}

// frame renders the current state to a (Height, Width, Channels) tensor
func (p *Pong) frame() *tensor.Dense {
	p.draw()

	img := p.canvas.Image()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	backing := make([]float64, Height*Width*Channels)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			offset := rgba.PixOffset(x, y)
			i := (y*Width + x) * Channels
			for c := 0; c < Channels; c++ {
				backing[i+c] = float64(rgba.Pix[offset+c])
			}
		}
	}

	return tensor.New(
		tensor.WithShape(Height, Width, Channels),
		tensor.WithBacking(backing),
	)
}

// draw renders the bodies onto the canvas. Rectangles are snapped to
// whole pixels so that the frame only contains palette colours.
func (p *Pong) draw() {
	p.canvas.SetColor(Background)
	p.canvas.Clear()

	p.canvas.SetColor(Foreground)
	for _, body := range []struct {
		*box2d.B2Body
		w, h float64
	}{
		{p.player, PaddleW, PaddleH},
		{p.opponent, PaddleW, PaddleH},
		{p.ball, BallSize, BallSize},
	} {
		x, y := toPixels(body.GetPosition())
		p.canvas.DrawRectangle(math.Round(x-body.w/2),
			math.Round(y-body.h/2), body.w, body.h)
		p.canvas.Fill()
	}
}

// createWorld creates the Box2D world and all bodies in it
func (p *Pong) createWorld() {
	p.world = box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))

	w := toMetres(float64(Width))
	h := toMetres(float64(Height))

	// Top and bottom walls
	p.walls = make([]*box2d.B2Body, 2)
	for i, y := range []float64{0, h} {
		wallDef := box2d.NewB2BodyDef()
		wallDef.Type = 0 // Static body
		p.walls[i] = p.world.CreateBody(wallDef)

		wallShape := box2d.NewB2EdgeShape()
		wallShape.Set(box2d.MakeB2Vec2(0, y), box2d.MakeB2Vec2(w, y))

		wallFix := box2d.MakeB2FixtureDef()
		wallFix.Shape = wallShape
		wallFix.Friction = 0
		wallFix.Restitution = 1
		p.walls[i].CreateFixtureFromDef(&wallFix)
	}

	p.player = p.createPaddle(toMetres(PaddleOffset))
	p.opponent = p.createPaddle(w - toMetres(PaddleOffset))

	ballDef := box2d.MakeB2BodyDef()
	ballDef.Type = 2 // Dynamic body
	ballDef.Bullet = true
	ballDef.FixedRotation = true
	ballDef.Position = box2d.MakeB2Vec2(w/2, h/2)
	p.ball = p.world.CreateBody(&ballDef)

	ballShape := box2d.NewB2PolygonShape()
	ballShape.SetAsBox(toMetres(BallSize)/2, toMetres(BallSize)/2)

	ballFix := box2d.MakeB2FixtureDef()
	ballFix.Shape = ballShape
	ballFix.Density = 1
	ballFix.Friction = 0
	ballFix.Restitution = 1
	p.ball.CreateFixtureFromDef(&ballFix)
}

// createPaddle creates a kinematic paddle centred vertically at x
func (p *Pong) createPaddle(x float64) *box2d.B2Body {
	paddleDef := box2d.MakeB2BodyDef()
	paddleDef.Type = 1 // Kinematic body
	paddleDef.FixedRotation = true
	paddleDef.Position = box2d.MakeB2Vec2(x, toMetres(float64(Height))/2)
	paddle := p.world.CreateBody(&paddleDef)

	paddleShape := box2d.NewB2PolygonShape()
	paddleShape.SetAsBox(toMetres(PaddleW)/2, toMetres(PaddleH)/2)

	paddleFix := box2d.MakeB2FixtureDef()
	paddleFix.Shape = paddleShape
	paddleFix.Friction = 0
	paddleFix.Restitution = 1
	paddle.CreateFixtureFromDef(&paddleFix)

	return paddle
}

// destroyWorld removes all bodies from the world
func (p *Pong) destroyWorld() {
	if p.ball == nil {
		return
	}
	p.world.DestroyBody(p.ball)
	p.world.DestroyBody(p.player)
	p.world.DestroyBody(p.opponent)
	for _, wall := range p.walls {
		p.world.DestroyBody(wall)
	}
	p.ball, p.player, p.opponent, p.walls = nil, nil, nil, nil
}

// toMetres converts pixels to metres
func toMetres(pixels float64) float64 {
	return pixels / Scale
}

// toPixels converts a world position to pixel coordinates, with the
// origin in the top left
func toPixels(v box2d.B2Vec2) (float64, float64) {
	return v.X * Scale, float64(Height) - v.Y*Scale
}
