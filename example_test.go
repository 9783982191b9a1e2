package ioc_test

import (
	"context"
	"fmt"
	"log"

	"github.com/junioryono/ioc"
)

type Mailer interface {
	Send(to string) string
}

type SMTPMailer struct {
	Host string `inject:"smtp.host"`
}

func (m *SMTPMailer) Send(to string) string {
	return fmt.Sprintf("mail to %s via %s", to, m.Host)
}

type SignupService struct {
	Mailer Mailer `inject:"mailer"`
}

type Clock struct {
	Zone string
}

type Scheduler struct {
	clock *Clock
	name  string
}

func NewScheduler(clock *Clock, name string) *Scheduler {
	return &Scheduler{clock: clock, name: name}
}

type Audited struct{}

var MailerToken = ioc.NewToken("mailer")

func init() {
	ioc.Declare[SMTPMailer](ioc.Singleton(), ioc.ProvidedAs("mailer"))
	ioc.Declare[Scheduler](ioc.Constructor(NewScheduler), ioc.Param(1, "scheduler.name"))
	ioc.Declare[Audited](ioc.Custom("Audit", ioc.TargetClass, "", "billing"))
}

// Example registers a class and resolves a service depending on it.
func Example() {
	c, err := ioc.New()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	c.RegisterValue("smtp.host", "mail.local")
	if err := c.RegisterType(ioc.TypeOf[SMTPMailer]()); err != nil {
		log.Fatal(err)
	}

	svc, err := ioc.Resolve[*SignupService](c.Injector)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(svc.Mailer.Send("ada"))
	// Output: mail to ada via mail.local
}

// ExampleInjector_NewChild shows child bindings shadowing their parent.
func ExampleInjector_NewChild() {
	c, _ := ioc.New()
	defer c.Close()

	c.RegisterValue("env", "production")

	child := c.NewChild()
	child.RegisterValue("env", "test")

	fromRoot, _ := c.Get("env")
	fromChild, _ := child.Get("env")
	fmt.Println(fromRoot, fromChild)
	// Output: production test
}

// ExampleInjector_Get shows ad hoc providers overriding a binding for one
// call.
func ExampleInjector_Get() {
	c, _ := ioc.New()
	defer c.Close()

	c.RegisterValue(MailerToken, "smtp")

	v, _ := c.Get(MailerToken, ioc.Value(MailerToken, "noop"))
	fmt.Println(v)

	v, _ = c.Get(MailerToken)
	fmt.Println(v)

	v, _ = c.Get("missing")
	fmt.Println(v)
	// Output:
	// noop
	// smtp
	// <nil>
}

// ExampleConstructor shows constructor parameters resolved by type and by
// token.
func ExampleConstructor() {
	c, _ := ioc.New()
	defer c.Close()

	c.RegisterValue(ioc.TypeOf[Clock](), &Clock{Zone: "UTC"})
	c.RegisterValue("scheduler.name", "nightly")

	s := ioc.MustResolve[*Scheduler](c.Injector)
	fmt.Println(s.name, s.clock.Zone)
	// Output: nightly UTC
}

// ExampleActions_Register shows a handler for a custom annotation.
func ExampleActions_Register() {
	c, _ := ioc.New()
	defer c.Close()

	c.Actions().Register("Audit", ioc.StageRuntime, ioc.PhaseAnnotation, func(ctx *ioc.Context, next ioc.Next) error {
		fmt.Printf("built %s for %v\n", ctx.Type.Name(), ctx.Annotation.Metadata)
		return next()
	})

	_, _ = ioc.Resolve[*Audited](c.Injector)
	// Output: built Audited for billing
}

// ExampleContainer_Use registers a module and its imports.
func ExampleContainer_Use() {
	c, _ := ioc.New()
	defer c.Close()

	infra := ioc.NewModule("infra", ioc.Value("smtp.host", "relay"), ioc.TypeOf[SMTPMailer]())
	app := ioc.NewModule("app", infra, ioc.TypeOf[SignupService]())

	classes, err := c.Use(app)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(len(classes))

	svc := ioc.MustResolve[*SignupService](c.Injector)
	fmt.Println(svc.Mailer.Send("bob"))
	// Output:
	// 2
	// mail to bob via relay
}

// ExampleContainer_Load fetches modules concurrently before registering
// them.
func ExampleContainer_Load() {
	c, _ := ioc.New()
	defer c.Close()

	remote := func(ctx context.Context) (*ioc.Module, error) {
		return ioc.NewModule("remote", ioc.Value("region", "eu-west-1")), nil
	}

	if _, err := c.Load(context.Background(), remote); err != nil {
		log.Fatal(err)
	}

	region, _ := ioc.ResolveToken[string](c.Injector, "region")
	fmt.Println(region)
	// Output: eu-west-1
}
