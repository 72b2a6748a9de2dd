package chrome

// runnerPresentScript is true once the game has created its runner
const runnerPresentScript = `typeof Runner !== 'undefined' && !!Runner.instance_`

// telemetryScript returns a snapshot of the runner or null when there is none.
// Obstacles that are completely behind the character are dropped and the rest
// sorted nearest first.
const telemetryScript = `(function () {
  var r = (typeof Runner !== 'undefined') ? Runner.instance_ : null;
  if (!r || !r.tRex) { return null; }
  var t = r.tRex;
  var status = 'WAITING';
  if (r.crashed) { status = 'CRASHED'; }
  else if (t.jumping) { status = 'JUMPING'; }
  else if (t.ducking) { status = 'DUCKING'; }
  else if (r.playing) { status = 'RUNNING'; }
  var obstacles = [];
  var list = (r.horizon && r.horizon.obstacles) ? r.horizon.obstacles : [];
  for (var i = 0; i < list.length; i++) {
    var o = list[i];
    var x = o.xPos - t.xPos;
    if (x + o.width <= 0) { continue; }
    obstacles.push({
      x: x,
      y: o.yPos,
      width: o.width,
      height: o.typeConfig ? o.typeConfig.height : 0
    });
  }
  obstacles.sort(function (a, b) { return a.x - b.x; });
  return {
    status: status,
    distance: r.distanceMeter ? String(r.distanceMeter.getActualDistance(Math.ceil(r.distanceRan))) : '',
    speed: r.currentSpeed,
    jumpVelocity: t.jumpVelocity,
    yPos: t.yPos,
    obstacles: obstacles
  };
})()`
