package mathx

import (
	"fmt"
	"math"
)

// Quat 单位四元数，表示旋转
type Quat struct {
	X, Y, Z, W float64
}

// Identity 无旋转
var Identity = Quat{W: 1}

func (q Quat) String() string {
	return fmt.Sprintf("{%.3f, %.3f, %.3f, %.3f}", q.X, q.Y, q.Z, q.W)
}

// AxisAngle 绕 axis 旋转 radians 弧度
func AxisAngle(axis Vec3, radians float64) Quat {
	axis = axis.Normalized()
	s := math.Sin(radians / 2)
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(radians / 2)}
}

// Mul 组合旋转：先 o 后 q
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

func (q Quat) Dot(o Quat) float64 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Inverse 单位四元数的逆
func (q Quat) Inverse() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Normalized 归一化，零四元数返回 Identity
func (q Quat) Normalized() Quat {
	l := math.Sqrt(q.Dot(q))
	if l == 0 {
		return Identity
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Angle 两个旋转之间的夹角（弧度）
func Angle(a, b Quat) float64 {
	d := math.Abs(a.Normalized().Dot(b.Normalized()))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Rotate 旋转向量
func (q Quat) Rotate(v Vec3) Vec3 {
	p := Quat{X: v.X, Y: v.Y, Z: v.Z}
	r := q.Mul(p).Mul(q.Inverse())
	return Vec3{r.X, r.Y, r.Z}
}

// Slerp 球面插值，取最短路径
func Slerp(a, b Quat, t float64) Quat {
	cos := a.Dot(b)
	if cos < 0 {
		b = Quat{-b.X, -b.Y, -b.Z, -b.W}
		cos = -cos
	}

	// 夹角很小时退化为线性插值
	if cos > 0.9995 {
		return Quat{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
			W: a.W + (b.W-a.W)*t,
		}.Normalized()
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Quat{
		X: wa*a.X + wb*b.X,
		Y: wa*a.Y + wb*b.Y,
		Z: wa*a.Z + wb*b.Z,
		W: wa*a.W + wb*b.W,
	}
}
