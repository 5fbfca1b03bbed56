/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core provides the core gear for networks of tick-tock
// automata.
//
// A Network is a set of Components that run in parallel over shared
// symbols.  Each Component is a graph of Locations connected by Edges,
// and each Edge has a guard and some updates, which are expressions
// (see package expr).  Internal symbols belong to the network.
// External symbols model the environment, which Tockers update.
//
// A State is the current location of every component plus the values
// of all symbols.  States are values: State.Apply makes a new State
// from a StateChange.
//
// There are two kinds of steps.  A tick fires one enabled edge of one
// component (Network.Ticks).  A tock runs the tockers (Network.Tocks)
// and is only interesting if it changes a symbol that a current guard
// reads.  A state with a component at an urgent location that has an
// enabled edge must tick before it can tock (Network.Immediate).
//
// To use this package, make a Network.  Then Compile() it.  Then,
// starting from InitialState(), you can compute successors or Walk().
// Package verifier searches the whole state space.
package core
